package job

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/jobrunner/errors"
)

type echoJob struct {
	Base
	in  []any
	out any
	err error
	ran int
}

func (e *echoJob) SetInputs(values []any) { e.in = values }
func (e *echoJob) Output() any             { return e.out }
func (e *echoJob) Run(context.Context) error {
	e.ran++
	if e.err != nil {
		return e.err
	}
	e.out = e.in
	return nil
}

func newEcho(p Params) (Job, error) {
	return &echoJob{Base: NewBase(p)}, nil
}

func TestBase_Identity(t *testing.T) {
	inputs := []string{"a", "b"}
	j, _ := newEcho(Params{Name: "echo", Inputs: inputs, Config: "cfg"})
	inputs[0] = "mutated"

	if j.Name() != "echo" {
		t.Errorf("expected name echo, got %q", j.Name())
	}
	if diff := cmp.Diff([]string{"a", "b"}, j.RequiredInputs()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	e := j.(*echoJob)
	if e.Param() != "cfg" || e.ParamString() != "cfg" {
		t.Errorf("unexpected param %v", e.Param())
	}
	if err := j.Setup(context.Background()); err != nil {
		t.Errorf("Setup: %v", err)
	}
	if err := j.Teardown(context.Background()); err != nil {
		t.Errorf("Teardown: %v", err)
	}
}

func TestBase_ParamConversions(t *testing.T) {
	b := NewBase(Params{Config: map[string]any{"file": "out.csv"}})
	if b.ParamString() != "" {
		t.Errorf("expected empty string for map param, got %q", b.ParamString())
	}
	if b.ParamMap()["file"] != "out.csv" {
		t.Errorf("unexpected map %v", b.ParamMap())
	}

	n := NewBase(Params{Config: 42})
	if n.ParamString() != "42" {
		t.Errorf("expected 42, got %q", n.ParamString())
	}
	if n.ParamMap() != nil {
		t.Errorf("expected nil map, got %v", n.ParamMap())
	}
}

func TestRegistry_RegisterResolve(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("test.Echo", newEcho)
	r.MustRegister("vision.camera.Capture", newEcho)

	f, err := r.Resolve("test.Echo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	j, err := f(Params{Name: "x"})
	if err != nil || j.Name() != "x" {
		t.Fatalf("factory returned %v, %v", j, err)
	}

	if _, err := r.Resolve("vision.camera.Capture"); err != nil {
		t.Errorf("dotted namespace should resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"test", "vision.camera"}, r.Namespaces()); diff != "" {
		t.Errorf("namespaces mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Echo"}, r.Types("test")); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_ResolveFailures(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("test.Echo", newEcho)

	for _, id := range []string{"missing.Echo", "test.Missing", "noseparator", ".Echo", "test."} {
		t.Run(id, func(t *testing.T) {
			_, err := r.Resolve(id)
			if !errors.HasCode(err, errors.ErrCodeResolutionFailed) {
				t.Errorf("expected RESOLUTION_FAILED, got %v", err)
			}
		})
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("bad", newEcho); err == nil {
		t.Error("expected error for identifier without namespace")
	}
	if err := r.Register("test.Nil", nil); err == nil {
		t.Error("expected error for nil factory")
	}
	r.MustRegister("test.Echo", newEcho)
	if err := r.Register("test.Echo", newEcho); err == nil {
		t.Error("expected duplicate registration error")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected MustRegister to panic")
		}
	}()
	r.MustRegister("test.Echo", newEcho)
}

func TestSplitIdentifier(t *testing.T) {
	ns, typ, err := SplitIdentifier("a.b.C")
	if err != nil || ns != "a.b" || typ != "C" {
		t.Errorf("got %q %q %v", ns, typ, err)
	}
}

func TestUnwrap(t *testing.T) {
	inner, _ := newEcho(Params{Name: "echo"})
	wrapped := WithLogging(WithTracing(inner, "job"), nil)
	if Unwrap(wrapped) != inner {
		t.Error("expected Unwrap to return the innermost job")
	}
	if Unwrap(inner) != inner {
		t.Error("expected Unwrap of a plain job to return itself")
	}
	if wrapped.Name() != "echo" {
		t.Errorf("decorator should expose the inner name, got %q", wrapped.Name())
	}
}

func TestDecorator_PassesErrors(t *testing.T) {
	boom := stderrors.New("boom")
	inner := &echoJob{Base: NewBase(Params{Name: "echo"}), err: boom}
	wrapped := WithTracing(inner, "job")

	if err := wrapped.Run(context.Background()); !stderrors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if inner.ran != 1 {
		t.Errorf("expected inner run once, got %d", inner.ran)
	}
}
