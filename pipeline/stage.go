package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/jobrunner/errors"
	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/observability"
	"github.com/kbukum/jobrunner/perf"
)

// Stage runs a set of jobs concurrently on a bounded worker pool and acts as
// a barrier: Run returns only after every job has finished.
type Stage struct {
	name    string
	index   int
	width   int
	jobs    []job.Job
	perf    *perf.Monitor
	log     *logger.Logger
	metrics *observability.Metrics
	tracing bool
}

// NewStage creates an empty stage. width bounds the number of jobs running at
// the same time and historySize the number of retained stage durations.
func NewStage(name string, index, width, historySize int, log *logger.Logger) *Stage {
	if width < 1 {
		width = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Stage{
		name:  name,
		index: index,
		width: width,
		perf:  perf.NewMonitor(name, historySize),
		log:   log.WithFields(map[string]interface{}{logger.FieldStage: name}),
	}
}

// AddJob appends a job to the stage.
func (s *Stage) AddJob(j job.Job) {
	s.jobs = append(s.jobs, j)
}

// Jobs returns the stage's jobs in insertion order.
func (s *Stage) Jobs() []job.Job {
	out := make([]job.Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

func (s *Stage) Name() string { return s.name }

func (s *Stage) Index() int { return s.index }

func (s *Stage) Width() int { return s.width }

// Performance returns the stage duration history.
func (s *Stage) Performance() *perf.Monitor { return s.perf }

// Run executes every job of the stage and waits for all of them. A failing
// or panicking job does not stop its siblings; once all jobs returned, the
// failures are reported together as one JOB_FAILURE error.
func (s *Stage) Run(ctx context.Context) error {
	ctx = observability.WithStage(ctx, s.name)
	info, _ := observability.RunInfoFromContext(ctx)

	var span trace.Span
	if s.tracing {
		ctx, span = observability.StartRunSpan(ctx, observability.SpanStage)
	}

	var (
		mu       sync.Mutex
		failures = make(map[string]error)
		g        errgroup.Group
	)
	g.SetLimit(s.width)

	start := time.Now()
	for _, j := range s.jobs {
		g.Go(func() error {
			if err := runJob(ctx, j); err != nil {
				mu.Lock()
				failures[j.Name()] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	duration := time.Since(start)
	s.perf.Record(duration)

	status := "ok"
	var err error
	if len(failures) > 0 {
		status = "error"
		err = errors.JobFailure("stage "+s.name, failures)
	}
	if span != nil {
		observability.EndSpan(span, err)
	}
	if s.metrics != nil {
		s.metrics.RecordStage(ctx, info.Pipeline, s.name, status, duration)
	}

	fields := logger.MergeWithDuration(map[string]interface{}{
		logger.FieldIteration: info.Iteration,
		"jobs":                len(s.jobs),
	}, duration)
	if err != nil {
		s.log.Error("stage failed", logger.MergeWithError(fields, err))
		return err
	}
	s.log.Debug("stage completed", fields)
	return nil
}

func runJob(ctx context.Context, j job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.Run(ctx)
}
