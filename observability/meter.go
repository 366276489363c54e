package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/jobrunner/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the pipeline engine.
type Metrics struct {
	jobTotal          metric.Int64Counter
	jobDuration       metric.Float64Histogram
	jobActive         metric.Int64UpDownCounter
	stageDuration     metric.Float64Histogram
	iterationTotal    metric.Int64Counter
	iterationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	jobTotal, err := meter.Int64Counter("pipeline.job.total",
		metric.WithDescription("Total number of job lifecycle calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.job.total counter: %w", err)
	}

	jobDuration, err := meter.Float64Histogram("pipeline.job.duration",
		metric.WithDescription("Duration of job lifecycle calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.job.duration histogram: %w", err)
	}

	jobActive, err := meter.Int64UpDownCounter("pipeline.job.active",
		metric.WithDescription("Number of jobs currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.job.active gauge: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("pipeline.stage.duration",
		metric.WithDescription("Wall time of a stage barrier in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.stage.duration histogram: %w", err)
	}

	iterationTotal, err := meter.Int64Counter("pipeline.iteration.total",
		metric.WithDescription("Total number of completed pipeline iterations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.iteration.total counter: %w", err)
	}

	iterationDuration, err := meter.Float64Histogram("pipeline.iteration.duration",
		metric.WithDescription("Duration of a full pipeline iteration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.iteration.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pipeline.error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.error.total counter: %w", err)
	}

	return &Metrics{
		jobTotal:          jobTotal,
		jobDuration:       jobDuration,
		jobActive:         jobActive,
		stageDuration:     stageDuration,
		iterationTotal:    iterationTotal,
		iterationDuration: iterationDuration,
		errorTotal:        errorTotal,
	}, nil
}

// RecordJobStart increments the running job count.
func (m *Metrics) RecordJobStart(ctx context.Context, pipeline string) {
	m.jobActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPipeline, pipeline)))
}

// RecordJobEnd decrements the running job count and records the finished call.
func (m *Metrics) RecordJobEnd(ctx context.Context, pipeline, job, phase, status string, duration time.Duration) {
	m.jobActive.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrPipeline, pipeline)))
	m.jobTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPipeline, pipeline),
		attribute.String(AttrJob, job),
		attribute.String(AttrPhase, phase),
		attribute.String(AttrStatus, status),
	))
	m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrPipeline, pipeline),
		attribute.String(AttrJob, job),
		attribute.String(AttrPhase, phase),
	))
}

// RecordStage records the wall time of one stage barrier.
func (m *Metrics) RecordStage(ctx context.Context, pipeline, stage, status string, duration time.Duration) {
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrPipeline, pipeline),
		attribute.String(AttrStage, stage),
		attribute.String(AttrStatus, status),
	))
}

// RecordIteration records one completed pipeline iteration.
func (m *Metrics) RecordIteration(ctx context.Context, pipeline string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrPipeline, pipeline))
	m.iterationTotal.Add(ctx, 1, attrs)
	m.iterationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
