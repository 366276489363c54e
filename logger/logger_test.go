package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: FormatJSON}, "jobrunner", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("invalid level should fall back to info")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message")
	}
}

func TestJSONOutput_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug")
	l.WithComponent("stage").Info("stage finished", JobFields("capture", "camera-1"))

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "stage" {
		t.Errorf("expected component field, got %v", m[FieldComponent])
	}
	if m[FieldStage] != "capture" || m[FieldJob] != "camera-1" {
		t.Errorf("unexpected fields %v", m)
	}
	if m[FieldService] != "jobrunner" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithError(errors.New("boom")).Error("failed")
	m := decodeLine(t, &buf)
	if m["error"] != "boom" {
		t.Errorf("expected error field, got %v", m["error"])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := Nop()
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the same logger when no span is active")
	}
}

func TestWithContext_Span(t *testing.T) {
	var buf bytes.Buffer
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	newJSONLogger(&buf, "info").WithContext(ctx).Info("traced")

	m := decodeLine(t, &buf)
	if m[FieldTraceID] != sc.TraceID().String() {
		t.Errorf("expected trace id, got %v", m[FieldTraceID])
	}
	if m[FieldSpanID] != sc.SpanID().String() {
		t.Errorf("expected span id, got %v", m[FieldSpanID])
	}
}

func TestInit_SetsGlobal(t *testing.T) {
	l := Init(Config{Level: "warn", Format: FormatJSON}, "init-svc")
	if GetGlobalLogger() != l {
		t.Fatal("expected global logger to be set after Init")
	}
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestRegistry(t *testing.T) {
	defer Reset()
	custom := Nop()
	Register("runner", custom)
	if Get("runner") != custom {
		t.Error("expected registered logger")
	}
	if Get("other") == nil {
		t.Error("expected fallback logger")
	}
	RegisterDefaults("stage")
	if Get("stage") == nil {
		t.Error("expected default registration")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
		{"bad output", Config{Output: "file"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if tt.cfg.Level != "" {
				cfg.Level = tt.cfg.Level
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFieldsHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("unexpected fields %v", f)
	}
	d := DurationFields("run", 1500*time.Microsecond)
	if d[FieldDuration] != 1.5 {
		t.Errorf("expected 1.5ms, got %v", d[FieldDuration])
	}
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("unexpected merge %v", m)
	}
	m = MergeWithDuration(m, 2*time.Millisecond)
	if m[FieldDuration] != 2.0 {
		t.Errorf("unexpected merge %v", m)
	}
	e := ErrorFields("setup", errors.New("y"))
	if e[FieldOperation] != "setup" {
		t.Errorf("unexpected error fields %v", e)
	}
}
