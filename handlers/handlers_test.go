package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/pipeline"
)

func mustJob(t *testing.T, f job.Factory, p job.Params) job.Job {
	t.Helper()
	j, err := f(p)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := j.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return j
}

func TestRegister(t *testing.T) {
	reg := job.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	want := []string{"CSVSink", "Constant", "Counter", "Log", "Sum"}
	if diff := cmp.Diff(want, reg.Types(Namespace)); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
	if err := Register(reg); err == nil {
		t.Error("expected registering twice to fail")
	}
}

func TestConstant(t *testing.T) {
	j := mustJob(t, NewConstant, job.Params{Name: "k", Config: "42"})
	if j.Output() != nil {
		t.Errorf("expected nil output before the first run, got %v", j.Output())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if j.Output() != "42" {
		t.Errorf("expected 42, got %v", j.Output())
	}
}

func TestCounter(t *testing.T) {
	j := mustJob(t, NewCounter, job.Params{Name: "c", Config: map[string]any{"start": "10", "step": 5}})
	var got []any
	for i := 0; i < 3; i++ {
		if err := j.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		got = append(got, j.Output())
	}
	if diff := cmp.Diff([]any{int64(10), int64(15), int64(20)}, got); diff != "" {
		t.Errorf("counter mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewCounter(job.Params{Name: "c", Config: map[string]any{"step": "fast"}}); err == nil {
		t.Error("expected a non-numeric step to be rejected")
	}
}

func TestSum(t *testing.T) {
	j := mustJob(t, NewSum, job.Params{Name: "s", Inputs: []string{"a", "b", "c"}})
	j.SetInputs([]any{int64(1), "2.5", nil})
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if j.Output() != 3.5 {
		t.Errorf("expected 3.5, got %v", j.Output())
	}

	j.SetInputs([]any{1, "many", 2})
	err := j.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), `input "b"`) {
		t.Errorf("expected error naming input b, got %v", err)
	}
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	p := job.Params{Name: "sink", Inputs: []string{"frame", "total"}, Config: path}

	j := mustJob(t, NewCSVSink, p)
	for _, in := range [][]any{{int64(1), 3.5}, {int64(2), "x,y"}} {
		j.SetInputs(in)
		if err := j.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if j.Output() != 2 {
		t.Errorf("expected 2 rows written, got %v", j.Output())
	}
	if err := j.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	// A second sink on the same file appends without another header.
	j = mustJob(t, NewCSVSink, p)
	j.SetInputs([]any{int64(3), nil})
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := j.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "sample,frame,total\n1,1,3.5\n2,2,\"x,y\"\n1,3,\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVSink_Config(t *testing.T) {
	if _, err := NewCSVSink(job.Params{Name: "sink"}); err == nil {
		t.Error("expected a missing path to be rejected")
	}
	path := filepath.Join(t.TempDir(), "out.csv")
	j, err := NewCSVSink(job.Params{Name: "sink", Config: map[string]any{"path": path}})
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	if err := j.Run(context.Background()); err == nil {
		t.Error("expected Run before Setup to fail")
	}
	if err := j.Teardown(context.Background()); err != nil {
		t.Errorf("Teardown before Setup: %v", err)
	}

	bad := setupErr(t, NewCSVSink, job.Params{Name: "sink", Config: filepath.Join(t.TempDir(), "missing", "out.csv")})
	if bad == nil {
		t.Error("expected Setup to fail for a missing directory")
	}
}

func setupErr(t *testing.T, f job.Factory, p job.Params) error {
	t.Helper()
	j, err := f(p)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	return j.Setup(context.Background())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger.Register(Namespace, logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf))
	t.Cleanup(logger.Reset)

	j := mustJob(t, NewLog, job.Params{
		Name:   "print",
		Inputs: []string{"total"},
		Config: map[string]any{"message": "total computed", "level": "warn"},
	})
	j.SetInputs([]any{7})
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["message"] != "total computed" || line["level"] != "warn" || line["job"] != "print" || line["total"] != float64(7) {
		t.Errorf("unexpected log line %v", line)
	}
}

const exampleDocument = `
settings:
  configuration-name: builtin-test
  threadpool-size: 2
  performance-history-size: 10
pipeline: [sources, compute, sinks]
sources: [ticks, offset]
compute: [total]
sinks: [sink]
ticks:
  handler: builtin.Counter
offset:
  handler: builtin.Constant
  config: 100
total:
  handler: builtin.Sum
  input: [ticks, offset]
sink:
  handler: builtin.CSVSink
  input: [ticks, total]
  config: %s
`

func TestBuiltinPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "totals.csv")
	reg := job.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	doc := strings.Replace(exampleDocument, "%s", path, 1)
	store, err := config.NewStoreFromReader(strings.NewReader(doc), "yaml", reg)
	if err != nil {
		t.Fatalf("NewStoreFromReader: %v", err)
	}
	r, err := pipeline.New(store, pipeline.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	if err := r.Run(context.Background(), 3); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "sample,ticks,total\n1,1,101\n2,2,102\n3,3,103\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}
