package job

import (
	"context"

	"github.com/spf13/cast"
)

// Job is a named, stateful unit of work driven by the pipeline runner.
//
// The runner calls Setup once before the first iteration, then SetInputs and
// Run once per iteration, and Teardown once when the loop ends. Output may be
// read at any time after Run returns and must reflect the latest Run.
type Job interface {
	Name() string
	// RequiredInputs lists, in order, the names of the jobs whose outputs
	// this job consumes.
	RequiredInputs() []string
	Setup(ctx context.Context) error
	Run(ctx context.Context) error
	Teardown(ctx context.Context) error
	// SetInputs receives the outputs of RequiredInputs in declared order.
	SetInputs(values []any)
	Output() any
}

// Params carries the construction arguments of a job.
type Params struct {
	// Name is unique within one runner.
	Name string
	// Inputs are the job names whose outputs this job consumes.
	Inputs []string
	// Config is the opaque per-job configuration value, nil when absent.
	Config any
}

// Factory constructs a job from its parameters.
type Factory func(p Params) (Job, error)

// Base implements the identity part of Job and is meant to be embedded.
// It provides no-op Setup and Teardown.
type Base struct {
	name   string
	inputs []string
	param  any
}

// NewBase creates a Base from construction parameters.
func NewBase(p Params) Base {
	inputs := make([]string, len(p.Inputs))
	copy(inputs, p.Inputs)
	return Base{name: p.Name, inputs: inputs, param: p.Config}
}

func (b *Base) Name() string { return b.name }

func (b *Base) RequiredInputs() []string { return b.inputs }

// Param returns the opaque per-job configuration value.
func (b *Base) Param() any { return b.param }

// ParamString returns the configuration value as a string, or "" if it has
// no scalar representation.
func (b *Base) ParamString() string {
	s, err := cast.ToStringE(b.param)
	if err != nil {
		return ""
	}
	return s
}

// ParamMap returns the configuration value as a string-keyed map, or nil.
func (b *Base) ParamMap() map[string]any {
	m, err := cast.ToStringMapE(b.param)
	if err != nil {
		return nil
	}
	return m
}

func (b *Base) Setup(context.Context) error { return nil }

func (b *Base) Teardown(context.Context) error { return nil }

// Unwrap returns the innermost job of a chain of decorators.
func Unwrap(j Job) Job {
	for {
		w, ok := j.(interface{ Unwrap() Job })
		if !ok {
			return j
		}
		j = w.Unwrap()
	}
}
