package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/kbukum/jobrunner/job"
)

// Constant outputs its config value on every iteration.
type Constant struct {
	job.Base
	out any
}

func NewConstant(p job.Params) (job.Job, error) {
	return &Constant{Base: job.NewBase(p)}, nil
}

func (c *Constant) Run(context.Context) error {
	c.out = c.Param()
	return nil
}

func (c *Constant) SetInputs([]any) {}

func (c *Constant) Output() any { return c.out }

// Counter outputs start on its first run and adds step on each later run.
type Counter struct {
	job.Base
	start, step int64
	next        int64
	out         any
}

func NewCounter(p job.Params) (job.Job, error) {
	c := &Counter{Base: job.NewBase(p), start: 1, step: 1}
	cfg := c.ParamMap()
	if v, ok := cfg["start"]; ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("counter %q: start: %w", p.Name, err)
		}
		c.start = n
	}
	if v, ok := cfg["step"]; ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("counter %q: step: %w", p.Name, err)
		}
		c.step = n
	}
	return c, nil
}

func (c *Counter) Setup(context.Context) error {
	c.next = c.start
	return nil
}

func (c *Counter) Run(context.Context) error {
	c.out = c.next
	c.next += c.step
	return nil
}

func (c *Counter) SetInputs([]any) {}

func (c *Counter) Output() any { return c.out }

// Sum outputs the sum of its inputs as a float64. Nil inputs, such as the
// output of a job that has not run yet, count as zero.
type Sum struct {
	job.Base
	inputs []any
	out    any
}

func NewSum(p job.Params) (job.Job, error) {
	return &Sum{Base: job.NewBase(p)}, nil
}

func (s *Sum) Run(context.Context) error {
	var total float64
	for i, v := range s.inputs {
		if v == nil {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return fmt.Errorf("input %q is not numeric: %w", s.RequiredInputs()[i], err)
		}
		total += f
	}
	s.out = total
	return nil
}

func (s *Sum) SetInputs(values []any) { s.inputs = values }

func (s *Sum) Output() any { return s.out }
