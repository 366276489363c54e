package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/jobrunner/component"
)

const componentName = "pipeline"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Runner in the background as a lifecycle-managed component.
type Component struct {
	runner *Runner
}

// NewComponent wraps r as a component.Component.
func NewComponent(r *Runner) *Component {
	return &Component{runner: r}
}

// Runner returns the wrapped runner.
func (c *Component) Runner() *Runner { return c.runner }

func (c *Component) Name() string { return componentName }

// Start launches the loop. The loop outlives ctx and ends with Stop.
func (c *Component) Start(ctx context.Context) error {
	return c.runner.RunAsync(context.WithoutCancel(ctx))
}

// Stop ends the loop after the current iteration and tears down the jobs,
// including after a failed iteration.
func (c *Component) Stop(ctx context.Context) error {
	runErr := c.runner.StopAsync()
	return stderrors.Join(runErr, c.runner.Teardown(ctx))
}

// Health is unhealthy after a failed run, healthy while the loop runs and
// degraded otherwise.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: componentName}
	switch {
	case c.runner.Err() != nil:
		h.Status = component.StatusUnhealthy
		h.Message = c.runner.Err().Error()
	case c.runner.Running():
		h.Status = component.StatusHealthy
		h.Message = fmt.Sprintf("%d iterations", c.runner.Iterations())
	case c.runner.Stopped():
		h.Status = component.StatusDegraded
		h.Message = "stopped"
	default:
		h.Status = component.StatusDegraded
		h.Message = "not started"
	}
	return h
}

// Describe returns the pipeline summary for the startup display.
func (c *Component) Describe() component.Description {
	s := c.runner.Settings()
	return component.Description{
		Name: s.Name,
		Type: "pipeline",
		Details: fmt.Sprintf("%d stages, %d jobs, width %d, run %s",
			len(c.runner.stages), len(c.runner.order), s.ThreadPoolSize, c.runner.RunID()),
	}
}
