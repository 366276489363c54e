package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/kbukum/jobrunner/errors"
	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
)

// gateJob tracks how many jobs run at the same time.
type gateJob struct {
	job.Base
	active  *atomic.Int32
	peak    *atomic.Int32
	done    atomic.Bool
	delay   time.Duration
	err     error
	panicky bool
}

func (g *gateJob) Run(ctx context.Context) error {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(g.delay)
	g.done.Store(true)
	if g.panicky {
		panic("index out of range")
	}
	return g.err
}

func (g *gateJob) SetInputs([]any) {}

func (g *gateJob) Output() any { return nil }

func newGateJobs(n int, delay time.Duration) ([]*gateJob, *atomic.Int32) {
	var active, peak atomic.Int32
	jobs := make([]*gateJob, n)
	for i := range jobs {
		jobs[i] = &gateJob{
			Base:   job.NewBase(job.Params{Name: string(rune('a' + i))}),
			active: &active,
			peak:   &peak,
			delay:  delay,
		}
	}
	return jobs, &peak
}

func TestStage_RespectsWidthAndWaitsForAll(t *testing.T) {
	st := NewStage("detect", 0, 2, 10, logger.Nop())
	jobs, peak := newGateJobs(6, 10*time.Millisecond)
	for _, j := range jobs {
		st.AddJob(j)
	}

	if err := st.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, j := range jobs {
		if !j.done.Load() {
			t.Errorf("job %s had not finished when Run returned", j.Name())
		}
	}
	if p := peak.Load(); p > 2 || p < 1 {
		t.Errorf("expected at most 2 concurrent jobs, got %d", p)
	}
	if st.Performance().Count() != 1 {
		t.Errorf("expected one recorded stage duration, got %d", st.Performance().Count())
	}
}

func TestStage_AggregatesFailures(t *testing.T) {
	st := NewStage("detect", 0, 4, 10, logger.Nop())
	jobs, _ := newGateJobs(4, time.Millisecond)
	jobs[1].err = errors.New("model not loaded")
	jobs[3].panicky = true
	for _, j := range jobs {
		st.AddJob(j)
	}

	err := st.Run(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeJobFailure) {
		t.Fatalf("expected JOB_FAILURE, got %v", err)
	}
	if diff := cmp.Diff([]string{"b", "d"}, apperrors.FailedJobs(err)); diff != "" {
		t.Errorf("failed jobs mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, jobs[1].err) {
		t.Error("expected job error to be reachable with errors.Is")
	}
	for _, j := range jobs {
		if !j.done.Load() {
			t.Errorf("sibling %s must complete despite failures", j.Name())
		}
	}
	if st.Performance().Count() != 1 {
		t.Error("expected duration to be recorded for a failed stage")
	}
}

func TestStage_HistoryCapacity(t *testing.T) {
	st := NewStage("capture", 0, 1, 2, nil)
	jobs, _ := newGateJobs(1, 0)
	st.AddJob(jobs[0])

	for i := 0; i < 3; i++ {
		if err := st.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if st.Performance().Len() != 2 || st.Performance().Count() != 3 {
		t.Errorf("expected 2 retained of 3 runs, got %d of %d",
			st.Performance().Len(), st.Performance().Count())
	}
}

func TestStage_EmptyAndDefaults(t *testing.T) {
	st := NewStage("idle", 3, 0, 0, nil)
	if st.Width() != 1 || st.Index() != 3 || st.Name() != "idle" {
		t.Errorf("unexpected stage %q index=%d width=%d", st.Name(), st.Index(), st.Width())
	}
	if err := st.Run(context.Background()); err != nil {
		t.Fatalf("Run on empty stage: %v", err)
	}
	if len(st.Jobs()) != 0 {
		t.Error("expected no jobs")
	}
}
