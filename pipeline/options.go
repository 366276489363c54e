package pipeline

import (
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/observability"
)

// Option configures a Runner.
type Option func(*options)

type options struct {
	log     *logger.Logger
	metrics *observability.Metrics
	tracing bool
	runID   string
}

// WithLogger sets the logger used by the runner, its stages and jobs.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records job, stage and iteration metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracing creates spans for iterations, stages and job lifecycle calls.
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}
