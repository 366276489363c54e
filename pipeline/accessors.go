package pipeline

import (
	"time"

	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/perf"
)

// Job returns the job registered under name, without observability wrappers.
func (r *Runner) Job(name string) (job.Job, bool) {
	j, ok := r.jobs[name]
	if !ok {
		return nil, false
	}
	return job.Unwrap(j), true
}

// Jobs returns every job in parse order.
func (r *Runner) Jobs() []job.Job {
	out := make([]job.Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, job.Unwrap(r.jobs[name]))
	}
	return out
}

// Stage returns the stage at index i.
func (r *Runner) Stage(i int) (*Stage, bool) {
	if i < 0 || i >= len(r.stages) {
		return nil, false
	}
	return r.stages[i], true
}

// Stages returns the stages in execution order.
func (r *Runner) Stages() []*Stage {
	out := make([]*Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

func (r *Runner) Settings() Settings { return r.settings }

// Label returns the configuration name of the pipeline.
func (r *Runner) Label() string { return r.settings.Name }

func (r *Runner) RunID() string { return r.runID }

// Iterations returns the number of completed iterations.
func (r *Runner) Iterations() int64 { return r.iterations.Load() }

func (r *Runner) LastIterationTime() time.Duration { return r.perf.Last() }

// OverallIterationTime returns the summed duration of every iteration.
func (r *Runner) OverallIterationTime() time.Duration { return r.perf.Overall() }

// AverageIterationTime returns the mean duration of the retained iterations.
func (r *Runner) AverageIterationTime() time.Duration { return r.perf.Average() }

// Performance returns the iteration duration history.
func (r *Runner) Performance() *perf.Monitor { return r.perf }

// Running reports whether the loop is executing.
func (r *Runner) Running() bool { return r.running.Load() }

// Stopped reports whether the jobs were torn down.
func (r *Runner) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tornDown
}

// Err returns the error of the last Run, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Snapshot is a point-in-time view of a runner.
type Snapshot struct {
	Name       string          `json:"name"`
	RunID      string          `json:"run_id"`
	Running    bool            `json:"running"`
	Stopped    bool            `json:"stopped"`
	Iterations int64           `json:"iterations"`
	Error      string          `json:"error,omitempty"`
	Iteration  perf.Stats      `json:"iteration"`
	Stages     []StageSnapshot `json:"stages"`
}

// StageSnapshot describes one stage of a Snapshot.
type StageSnapshot struct {
	Index       int        `json:"index"`
	Name        string     `json:"name"`
	Width       int        `json:"width"`
	Jobs        []string   `json:"jobs"`
	Performance perf.Stats `json:"performance"`
}

// Snapshot returns the current state and statistics of the runner.
func (r *Runner) Snapshot() Snapshot {
	s := Snapshot{
		Name:       r.settings.Name,
		RunID:      r.runID,
		Running:    r.Running(),
		Stopped:    r.Stopped(),
		Iterations: r.Iterations(),
		Iteration:  r.perf.Stats(),
		Stages:     make([]StageSnapshot, 0, len(r.stages)),
	}
	if err := r.Err(); err != nil {
		s.Error = err.Error()
	}
	for _, st := range r.stages {
		names := make([]string, 0, len(st.jobs))
		for _, j := range st.jobs {
			names = append(names, j.Name())
		}
		s.Stages = append(s.Stages, StageSnapshot{
			Index:       st.index,
			Name:        st.name,
			Width:       st.width,
			Jobs:        names,
			Performance: st.perf.Stats(),
		})
	}
	return s
}
