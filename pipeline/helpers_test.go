package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cast"

	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
)

// recorder counts lifecycle calls per job.
type recorder struct {
	mu          sync.Mutex
	calls       map[string]map[string]int
	constructed int
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string]map[string]int)}
}

func (r *recorder) add(name, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls[name] == nil {
		r.calls[name] = make(map[string]int)
	}
	r.calls[name][phase]++
}

func (r *recorder) count(name, phase string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name][phase]
}

// stubJob outputs its configured value, or the sum of its inputs when it has
// any. Behaviour is driven by its config map.
type stubJob struct {
	job.Base
	rec *recorder

	value      any
	counter    bool
	fail       bool
	panics     bool
	setupFails int
	delay      time.Duration

	inputs  []any
	history [][]any
	output  any
	runs    int
}

func newStub(p job.Params, rec *recorder) *stubJob {
	s := &stubJob{Base: job.NewBase(p), rec: rec}
	cfg := s.ParamMap()
	s.value = cfg["output"]
	s.counter = cast.ToBool(cfg["counter"])
	s.fail = cast.ToBool(cfg["fail"])
	s.panics = cast.ToBool(cfg["panic"])
	s.setupFails = cast.ToInt(cfg["setup_fails"])
	s.delay = cast.ToDuration(cfg["delay"])
	return s
}

func (s *stubJob) Setup(ctx context.Context) error {
	s.rec.add(s.Name(), "setup")
	if s.setupFails > 0 {
		s.setupFails--
		return errors.New("device unavailable")
	}
	return nil
}

func (s *stubJob) Run(ctx context.Context) error {
	s.rec.add(s.Name(), "run")
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panics {
		panic("boom")
	}
	if s.fail {
		return errors.New("run failed")
	}
	s.runs++
	switch {
	case s.counter:
		s.output = s.runs
	case len(s.inputs) > 0:
		sum := 0
		for _, v := range s.inputs {
			sum += cast.ToInt(v)
		}
		s.output = sum
	default:
		s.output = s.value
	}
	return nil
}

func (s *stubJob) Teardown(ctx context.Context) error {
	s.rec.add(s.Name(), "teardown")
	return nil
}

func (s *stubJob) SetInputs(values []any) {
	s.inputs = values
	s.history = append(s.history, values)
}

func (s *stubJob) Output() any { return s.output }

func testRegistry(rec *recorder) *job.Registry {
	reg := job.NewRegistry()
	reg.MustRegister("test.Stub", func(p job.Params) (job.Job, error) {
		rec.mu.Lock()
		rec.constructed++
		rec.mu.Unlock()
		return newStub(p, rec), nil
	})
	reg.MustRegister("test.Broken", func(p job.Params) (job.Job, error) {
		return nil, errors.New("missing model file")
	})
	return reg
}

// twoStageDocument has two independent jobs in the first stage and one job
// summing both in the second.
func twoStageDocument() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"configuration-name":       "test-pipeline",
			"threadpool-size":          2,
			"performance-history-size": 10,
		},
		"pipeline": []any{"stage-1", "stage-2"},
		"stage-1":  []any{"task-1", "task-2"},
		"stage-2":  []any{"task-3"},
		"task-1": map[string]any{
			"handler": "test.Stub",
			"config":  map[string]any{"output": 1},
		},
		"task-2": map[string]any{
			"handler": "test.Stub",
			"config":  map[string]any{"output": 2},
		},
		"task-3": map[string]any{
			"handler": "test.Stub",
			"input":   []any{"task-1", "task-2"},
		},
	}
}

func newTestRunner(t *testing.T, doc map[string]any, rec *recorder, opts ...Option) *Runner {
	t.Helper()
	r, err := newRunnerFromMap(doc, rec, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func newRunnerFromMap(doc map[string]any, rec *recorder, opts ...Option) (*Runner, error) {
	store, err := config.NewStoreFromMap(doc, testRegistry(rec))
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	return New(store, opts...)
}

func stub(t *testing.T, r *Runner, name string) *stubJob {
	t.Helper()
	j, ok := r.Job(name)
	if !ok {
		t.Fatalf("job %q not found", name)
	}
	s, ok := j.(*stubJob)
	if !ok {
		t.Fatalf("job %q is %T, want *stubJob", name, j)
	}
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
