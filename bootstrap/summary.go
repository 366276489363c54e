package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/jobrunner/component"
)

// Summary prints the startup overview of an App: the described components,
// the routes of any route providers and a live health check.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
}

// NewSummary creates a summary printing to out.
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	if out == nil {
		out = io.Discard
	}
	return &Summary{serviceName: serviceName, version: version, out: out}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Display prints the summary for the components in registry.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, version, s.startupDuration.Seconds())

	if registry == nil || len(registry.All()) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}
	all := registry.All()

	fmt.Fprintf(w, "\n📦 Components\n")
	for i, c := range all {
		name, details := c.Name(), ""
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name != "" {
				name = desc.Name
			}
			details = desc.Details
			if desc.Type != "" {
				name = fmt.Sprintf("%s [%s]", name, desc.Type)
			}
		}
		if details != "" {
			fmt.Fprintf(w, "   %s %s: %s\n", treePrefix(i, len(all)), name, details)
		} else {
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(all)), name)
		}
	}

	var routes []component.Route
	for _, c := range all {
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	results := registry.HealthAll(ctx)
	fmt.Fprintf(w, "\n🏥 Health Check\n")
	healthy := 0
	for i, h := range results {
		msg := ""
		if h.Message != "" {
			msg = ": " + h.Message
		}
		fmt.Fprintf(w, "   %s %s %s %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status),
			h.Name, strings.ToLower(string(h.Status)), msg)
		if h.Healthy() {
			healthy++
		}
	}
	if healthy == len(results) {
		fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n\n", healthy, len(results))
	} else {
		fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n\n", healthy, len(results))
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
