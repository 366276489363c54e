package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/errors"
	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/observability"
	"github.com/kbukum/jobrunner/perf"
)

// Runner builds a pipeline of stages from a configuration document and drives
// the setup, repeated run and teardown of its jobs.
//
// A Runner is single use: once its jobs are torn down it cannot run again.
type Runner struct {
	settings Settings
	log      *logger.Logger
	metrics  *observability.Metrics
	tracing  bool
	runID    string

	jobs    map[string]job.Job
	order   []string
	stages  []*Stage
	stageOf map[string]int
	graph   graph.Graph[string, string]
	perf    *perf.Monitor

	loop       atomic.Bool
	running    atomic.Bool
	iterations atomic.Int64

	// runMu is held while the loop executes or jobs are torn down.
	runMu sync.Mutex
	ready map[string]bool

	mu       sync.Mutex
	tornDown bool
	async    *asyncRun
	lastErr  error
}

type asyncRun struct {
	done chan struct{}
	err  error
}

// New validates the document held by store and builds the pipeline it
// describes. A structural error is returned before any job is constructed.
func New(store *config.Store, opts ...Option) (*Runner, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("pipeline")
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	settings, err := Validate(store)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		settings: settings,
		metrics:  o.metrics,
		tracing:  o.tracing,
		runID:    o.runID,
		jobs:     make(map[string]job.Job),
		stageOf:  make(map[string]int),
		ready:    make(map[string]bool),
		perf:     perf.NewMonitor(settings.Name, settings.PerformanceHistorySize),
	}
	r.log = o.log.WithFields(map[string]interface{}{
		logger.FieldPipeline: settings.Name,
		logger.FieldRunID:    r.runID,
	})
	r.loop.Store(true)

	if err := r.parse(store); err != nil {
		return nil, err
	}
	if err := r.buildGraph(); err != nil {
		return nil, err
	}
	for _, dep := range r.StaleDependencies() {
		r.log.Warn("job reads the previous iteration's output of an input", map[string]interface{}{
			logger.FieldJob:   dep.Job,
			"input":           dep.Input,
			logger.FieldStage: r.stages[dep.JobStage].Name(),
			"input_stage":     r.stages[dep.InputStage].Name(),
		})
	}

	r.log.Info("pipeline built", map[string]interface{}{
		"stages": len(r.stages),
		"jobs":   len(r.order),
	})
	return r, nil
}

// Validate checks the structure of a pipeline document without constructing
// any job and returns its settings.
func Validate(store *config.Store) (Settings, error) {
	settings, err := LoadSettings(store)
	if err != nil {
		return Settings{}, err
	}

	stages := store.AsList(KeyPipeline)
	if len(stages) == 0 {
		return Settings{}, errors.StructuralConfig("%q must be a non-empty list of stage names", KeyPipeline)
	}

	seen := make(map[string]string)
	for _, stage := range stages {
		if stage == "" || !store.Exists(stage) {
			return Settings{}, errors.StructuralConfig("stage %q is not defined", stage)
		}
		tasks := store.AsList(stage)
		if len(tasks) == 0 {
			return Settings{}, errors.StructuralConfig("stage %q must be a non-empty list of task names", stage)
		}
		for _, task := range tasks {
			if task == "" || !store.Exists(task) {
				return Settings{}, errors.StructuralConfig("task %q of stage %q is not defined", task, stage)
			}
			if prev, dup := seen[task]; dup {
				return Settings{}, errors.StructuralConfig("task %q is listed in stage %q and stage %q", task, prev, stage)
			}
			seen[task] = stage

			if store.AsString(task+handlerSuffix) == "" {
				return Settings{}, errors.StructuralConfig("task %q has no handler", task)
			}
			if err := store.ValidateResolvable(task + handlerSuffix); err != nil {
				return Settings{}, err
			}
		}
	}
	return settings, nil
}

func (r *Runner) parse(store *config.Store) error {
	for i, stageName := range store.AsList(KeyPipeline) {
		st := NewStage(stageName, i, r.settings.ThreadPoolSize, r.settings.PerformanceHistorySize, r.log)
		st.metrics = r.metrics
		st.tracing = r.tracing

		for _, task := range store.AsList(stageName) {
			factory, err := store.ResolveType(task + handlerSuffix)
			if err != nil {
				return errors.StructuralConfig("task %q: %v", task, err).WithCause(err)
			}
			var param any
			if v, err := store.Get(task + jobConfigSuffix); err == nil {
				param = v
			}
			j, err := factory(job.Params{
				Name:   task,
				Inputs: store.AsList(task + inputSuffix),
				Config: param,
			})
			if err != nil {
				return errors.StructuralConfig("constructing job %q: %v", task, err).WithCause(err)
			}
			if j == nil {
				return errors.StructuralConfig("handler of task %q returned no job", task)
			}

			j = r.decorate(j)
			r.jobs[task] = j
			r.order = append(r.order, task)
			r.stageOf[task] = i
			st.AddJob(j)
		}
		r.stages = append(r.stages, st)
	}
	return nil
}

func (r *Runner) decorate(j job.Job) job.Job {
	j = job.WithLogging(j, r.log)
	if r.metrics != nil {
		j = job.WithMetrics(j, r.metrics)
	}
	if r.tracing {
		j = job.WithTracing(j, observability.SpanJob)
	}
	return j
}

// Run executes the pipeline loop. Jobs are set up before the first iteration.
// With iterations > 0 the loop stops after that many iterations; otherwise it
// runs until StopAsync is called or ctx is cancelled. Both are observed only
// between iterations.
//
// When the loop ends normally every job is torn down and the runner is
// stopped. When a job fails the error is returned and teardown is left to
// the caller.
func (r *Runner) Run(ctx context.Context, iterations int) error {
	if !r.runMu.TryLock() {
		return errors.RunnerBusy()
	}
	defer r.runMu.Unlock()

	err := r.run(ctx, iterations)
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	return err
}

func (r *Runner) run(ctx context.Context, iterations int) error {
	if r.Stopped() {
		return errors.RunnerStopped()
	}
	r.running.Store(true)
	defer r.running.Store(false)

	if err := r.setup(ctx); err != nil {
		return err
	}

	r.log.Info("pipeline loop started", map[string]interface{}{"budget": iterations})
	remaining := iterations
	for {
		if err := r.iterate(ctx); err != nil {
			return err
		}
		if !r.loop.Load() {
			break
		}
		if iterations > 0 {
			remaining--
			if remaining <= 0 {
				break
			}
		}
		if err := ctx.Err(); err != nil {
			r.log.Info("pipeline loop cancelled", logger.ErrorFields("run", err))
			if terr := r.teardown(context.WithoutCancel(ctx)); terr != nil {
				return stderrors.Join(err, terr)
			}
			return err
		}
	}
	return r.teardown(context.WithoutCancel(ctx))
}

// RunOnce executes exactly one iteration and stops the runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	r.loop.Store(false)
	return r.Run(ctx, 0)
}

// RunAsync starts the loop on a background goroutine. It does nothing if the
// loop is already running in the background.
func (r *Runner) RunAsync(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tornDown {
		return errors.RunnerStopped()
	}
	if r.async != nil {
		select {
		case <-r.async.done:
		default:
			return nil
		}
	}

	a := &asyncRun{done: make(chan struct{})}
	r.async = a
	go func() {
		defer close(a.done)
		a.err = r.Run(ctx, 0)
	}()
	return nil
}

// StopAsync asks the background loop to stop after the current iteration,
// waits for it and returns its error.
func (r *Runner) StopAsync() error {
	r.mu.Lock()
	a := r.async
	r.mu.Unlock()
	if a == nil {
		return nil
	}
	r.loop.Store(false)
	<-a.done
	return a.err
}

// Teardown tears down every job that was set up. It is meant for failure
// paths where the loop returned an error; after a normal exit it does
// nothing. The runner cannot run again afterwards.
func (r *Runner) Teardown(ctx context.Context) error {
	if !r.runMu.TryLock() {
		return errors.RunnerBusy()
	}
	defer r.runMu.Unlock()
	return r.teardown(ctx)
}

// setup runs Setup on every job in insertion order. Jobs already set up by an
// earlier call are skipped so a failed setup can be retried.
func (r *Runner) setup(ctx context.Context) error {
	info := observability.RunInfo{Pipeline: r.settings.Name, RunID: r.runID}
	ctx = observability.WithRunInfo(ctx, info)
	for _, name := range r.order {
		if r.ready[name] {
			continue
		}
		if err := r.jobs[name].Setup(ctx); err != nil {
			return errors.JobFailure(job.PhaseSetup, map[string]error{name: err})
		}
		r.ready[name] = true
	}
	return nil
}

func (r *Runner) teardown(ctx context.Context) error {
	r.mu.Lock()
	if r.tornDown {
		r.mu.Unlock()
		return nil
	}
	r.tornDown = true
	r.mu.Unlock()
	r.loop.Store(false)

	info := observability.RunInfo{Pipeline: r.settings.Name, RunID: r.runID}
	ctx = observability.WithRunInfo(ctx, info)
	failures := make(map[string]error)
	for _, name := range r.order {
		if !r.ready[name] {
			continue
		}
		if err := r.jobs[name].Teardown(ctx); err != nil {
			failures[name] = err
		}
		r.ready[name] = false
	}

	r.log.Info("pipeline stopped", map[string]interface{}{
		"iterations": r.iterations.Load(),
		"average_ms": float64(r.perf.Average().Microseconds()) / 1000,
	})
	if len(failures) > 0 {
		return errors.JobFailure(job.PhaseTeardown, failures)
	}
	return nil
}

// iterate runs every stage once, in order.
func (r *Runner) iterate(ctx context.Context) (err error) {
	n := r.iterations.Load() + 1
	ctx = observability.WithRunInfo(ctx, observability.RunInfo{
		Pipeline:  r.settings.Name,
		RunID:     r.runID,
		Iteration: n,
	})
	if r.tracing {
		var span trace.Span
		ctx, span = observability.StartRunSpan(ctx, observability.SpanIteration)
		defer func() { observability.EndSpan(span, err) }()
	}

	start := time.Now()
	for _, st := range r.stages {
		if err = r.wire(st); err != nil {
			return err
		}
		if err = st.Run(ctx); err != nil {
			return err
		}
	}
	duration := time.Since(start)
	r.perf.Record(duration)
	r.iterations.Store(n)

	if r.metrics != nil {
		r.metrics.RecordIteration(ctx, r.settings.Name, duration)
	}
	r.log.Debug("iteration completed", logger.MergeWithDuration(map[string]interface{}{
		logger.FieldIteration: n,
	}, duration))
	return nil
}

// wire passes the current outputs of each job's required inputs to the job,
// in declared order.
func (r *Runner) wire(st *Stage) error {
	for _, j := range st.jobs {
		required := j.RequiredInputs()
		values := make([]any, len(required))
		for i, name := range required {
			dep, ok := r.jobs[name]
			if !ok {
				return errors.UnknownInput(j.Name(), name)
			}
			values[i] = dep.Output()
		}
		j.SetInputs(values)
	}
	return nil
}
