package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/jobrunner/component"
)

const telemetryComponentName = "telemetry"

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// TelemetryConfig selects which exporters the Telemetry component installs.
type TelemetryConfig struct {
	Tracing bool
	Metrics bool
	Tracer  TracerConfig
	Meter   MeterConfig
}

// Telemetry installs the OpenTelemetry tracer and meter providers on Start
// and flushes them on Stop.
type Telemetry struct {
	cfg TelemetryConfig

	mu      sync.Mutex
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
	started bool
}

// NewTelemetry creates a telemetry component. With metrics enabled its
// instruments are created on the global meter up front and start exporting
// once Start installs the meter provider.
func NewTelemetry(cfg TelemetryConfig) (*Telemetry, error) {
	t := &Telemetry{cfg: cfg}
	if cfg.Metrics {
		m, err := NewMetrics(Meter(defaultTracerName))
		if err != nil {
			return nil, err
		}
		t.metrics = m
	}
	return t, nil
}

func (t *Telemetry) Name() string { return telemetryComponentName }

func (t *Telemetry) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.Tracing {
		tp, err := InitTracer(ctx, t.cfg.Tracer)
		if err != nil {
			return err
		}
		t.tp = tp
	}
	if t.cfg.Metrics {
		mp, err := InitMeter(ctx, t.cfg.Meter)
		if err != nil {
			return err
		}
		t.mp = mp
	}
	t.started = true
	return nil
}

func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		t.tp = nil
	}
	if t.mp != nil {
		if err := t.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		t.mp = nil
	}
	t.started = false
	return stderrors.Join(errs...)
}

func (t *Telemetry) Health(context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return component.Health{Name: telemetryComponentName, Status: component.StatusDegraded, Message: "not started"}
	}
	return component.Health{Name: telemetryComponentName, Status: component.StatusHealthy, Message: t.exporters()}
}

func (t *Telemetry) Describe() component.Description {
	return component.Description{
		Name:    "OpenTelemetry",
		Type:    "telemetry",
		Details: fmt.Sprintf("%s via %s", t.exporters(), t.cfg.Tracer.Endpoint),
	}
}

// Tracing reports whether spans are exported.
func (t *Telemetry) Tracing() bool { return t.cfg.Tracing }

// Metrics returns the pipeline instruments, nil when metrics are disabled.
func (t *Telemetry) Metrics() *Metrics { return t.metrics }

func (t *Telemetry) exporters() string {
	var parts []string
	if t.cfg.Tracing {
		parts = append(parts, "traces")
	}
	if t.cfg.Metrics {
		parts = append(parts, "metrics")
	}
	if len(parts) == 0 {
		return "disabled"
	}
	return strings.Join(parts, "+")
}
