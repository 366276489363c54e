package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/jobrunner/errors"
)

const exampleDocument = "testdata/pipeline.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, append(args, "--log-level", "error"))
	return out.String(), err
}

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "jobrunner ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "-c", exampleDocument)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := "pipeline \"example\" is valid: 3 stages, 4 tasks, width 2\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestValidate_Errors(t *testing.T) {
	if _, err := execute(t, "validate"); err == nil || !strings.Contains(err.Error(), "--config") {
		t.Errorf("expected missing document error, got %v", err)
	}
	if _, err := execute(t, "validate", "-c", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing document")
	}

	broken := writeDocument(t, `
settings:
  configuration-name: broken
  threadpool-size: 1
  performance-history-size: 10
pipeline: [stage-1]
stage-1: [task-1]
task-1:
  handler: builtin.Nope
`)
	_, err := execute(t, "validate", "-c", broken)
	if !errors.HasCode(err, errors.ErrCodeResolutionFailed) && !errors.HasCode(err, errors.ErrCodeStructuralConfig) {
		t.Errorf("expected a configuration error, got %v", err)
	}
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", "-c", exampleDocument)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	for _, edge := range []string{`"ticks" -> "total"`, `"offset" -> "total"`, `"total" -> "print"`} {
		if !strings.Contains(out, edge) {
			t.Errorf("expected edge %s in:\n%s", edge, out)
		}
	}
}

func TestRun_Iterations(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "perf.csv")
	out, err := execute(t, "run", "-c", exampleDocument, "-n", "3", "--perf-csv", csvPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out, "example: run=3 ") {
		t.Errorf("expected iteration summary first, got:\n%s", out)
	}
	for _, stage := range []string{"sources: run=3", "compute: run=3", "report: run=3"} {
		if !strings.Contains(out, stage) {
			t.Errorf("expected %q in:\n%s", stage, out)
		}
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 || lines[0] != "run,time,sum,avg,med,sd" {
		t.Errorf("unexpected performance csv:\n%s", data)
	}
}

func TestRun_Once(t *testing.T) {
	out, err := execute(t, "run", "-c", exampleDocument, "--once")
	if err != nil {
		t.Fatalf("run --once: %v", err)
	}
	if !strings.HasPrefix(out, "example: run=1 ") {
		t.Errorf("expected a single iteration, got:\n%s", out)
	}
}

func TestRun_FlagErrors(t *testing.T) {
	if _, err := execute(t, "run", "-c", exampleDocument, "--once", "-n", "2"); err == nil {
		t.Error("expected --once and --iterations to be mutually exclusive")
	}
	if _, err := execute(t, "run", "-c", exampleDocument, "--iterations=-1"); err == nil {
		t.Error("expected a negative budget to be rejected")
	}
}

func TestRun_JobFailure(t *testing.T) {
	doc := writeDocument(t, `
settings:
  configuration-name: failing
  threadpool-size: 1
  performance-history-size: 10
pipeline: [sources, compute]
sources: [word]
compute: [total]
word:
  handler: builtin.Constant
  config: hello
total:
  handler: builtin.Sum
  input: [word]
`)
	_, err := execute(t, "run", "-c", doc, "-n", "2")
	if !errors.HasCode(err, errors.ErrCodeJobFailure) {
		t.Fatalf("expected JOB_FAILURE, got %v", err)
	}
	if failed := errors.FailedJobs(err); len(failed) != 1 || failed[0] != "total" {
		t.Errorf("expected total to fail, got %v", failed)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out, errOut bytes.Buffer
	err := run(ctx, &out, &errOut, []string{"serve", "-c", exampleDocument, "--port", "0", "--log-level", "error"})
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(errOut.String(), "Status API [server]") {
		t.Errorf("expected startup summary on stderr, got:\n%s", errOut.String())
	}
}
