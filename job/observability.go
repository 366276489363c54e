package job

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/observability"
)

// Lifecycle phase names used in logs, spans and metrics.
const (
	PhaseSetup    = "setup"
	PhaseRun      = "run"
	PhaseTeardown = "teardown"
)

// WithTracing wraps a Job with OpenTelemetry span creation.
// Each lifecycle call creates a span named "{prefix}.{phase}" tagged with the
// job name and the run identity found in the context.
func WithTracing(j Job, prefix string) Job {
	return &tracingJob{Job: j, prefix: prefix}
}

type tracingJob struct {
	Job
	prefix string
}

func (j *tracingJob) Unwrap() Job { return j.Job }

func (j *tracingJob) Setup(ctx context.Context) error {
	return j.trace(ctx, PhaseSetup, j.Job.Setup)
}

func (j *tracingJob) Run(ctx context.Context) error {
	return j.trace(ctx, PhaseRun, j.Job.Run)
}

func (j *tracingJob) Teardown(ctx context.Context) error {
	return j.trace(ctx, PhaseTeardown, j.Job.Teardown)
}

func (j *tracingJob) trace(ctx context.Context, phase string, call func(context.Context) error) error {
	ctx, span := observability.StartRunSpan(ctx, j.prefix+"."+phase,
		attribute.String(observability.AttrJob, j.Name()),
		attribute.String(observability.AttrPhase, phase))
	err := call(ctx)
	observability.EndSpan(span, err)
	return err
}

// WithMetrics wraps a Job with metric recording.
// Records call count, duration, active jobs and errors per phase.
func WithMetrics(j Job, metrics *observability.Metrics) Job {
	return &metricsJob{Job: j, metrics: metrics}
}

type metricsJob struct {
	Job
	metrics *observability.Metrics
}

func (j *metricsJob) Unwrap() Job { return j.Job }

func (j *metricsJob) Setup(ctx context.Context) error {
	return j.record(ctx, PhaseSetup, j.Job.Setup)
}

func (j *metricsJob) Run(ctx context.Context) error {
	return j.record(ctx, PhaseRun, j.Job.Run)
}

func (j *metricsJob) Teardown(ctx context.Context) error {
	return j.record(ctx, PhaseTeardown, j.Job.Teardown)
}

func (j *metricsJob) record(ctx context.Context, phase string, call func(context.Context) error) error {
	info, _ := observability.RunInfoFromContext(ctx)
	j.metrics.RecordJobStart(ctx, info.Pipeline)

	start := time.Now()
	err := call(ctx)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		j.metrics.RecordError(ctx, phase, j.Name())
	}
	j.metrics.RecordJobEnd(ctx, info.Pipeline, j.Name(), phase, status, duration)
	return err
}

// WithLogging wraps a Job with lifecycle logging.
// Logs: job name, phase, duration, and success/error status.
func WithLogging(j Job, log *logger.Logger) Job {
	return &loggingJob{Job: j, log: log}
}

type loggingJob struct {
	Job
	log *logger.Logger
}

func (j *loggingJob) Unwrap() Job { return j.Job }

func (j *loggingJob) Setup(ctx context.Context) error {
	return j.logCall(ctx, PhaseSetup, j.Job.Setup)
}

func (j *loggingJob) Run(ctx context.Context) error {
	return j.logCall(ctx, PhaseRun, j.Job.Run)
}

func (j *loggingJob) Teardown(ctx context.Context) error {
	return j.logCall(ctx, PhaseTeardown, j.Job.Teardown)
}

func (j *loggingJob) logCall(ctx context.Context, phase string, call func(context.Context) error) error {
	start := time.Now()
	err := call(ctx)

	fields := logger.DurationFields(phase, time.Since(start))
	fields[logger.FieldJob] = j.Name()
	if info, ok := observability.RunInfoFromContext(ctx); ok {
		if info.Stage != "" {
			fields[logger.FieldStage] = info.Stage
		}
		if info.Iteration > 0 {
			fields[logger.FieldIteration] = info.Iteration
		}
	}

	log := j.log.WithContext(ctx)
	if err != nil {
		log.Error("job failed", logger.MergeWithError(fields, err))
	} else {
		log.Debug("job completed", fields)
	}
	return err
}
