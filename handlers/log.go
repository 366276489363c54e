package handlers

import (
	"context"

	"github.com/spf13/cast"

	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/observability"
)

// Log writes its inputs to the "builtin" logger on each iteration. The
// config may set "message" and "level" (debug, info or warn).
type Log struct {
	job.Base
	message string
	level   string
	log     *logger.Logger
	inputs  []any
}

func NewLog(p job.Params) (job.Job, error) {
	l := &Log{Base: job.NewBase(p), message: "job inputs", level: "info"}
	cfg := l.ParamMap()
	if m := cast.ToString(cfg["message"]); m != "" {
		l.message = m
	}
	if lv := cast.ToString(cfg["level"]); lv != "" {
		l.level = lv
	}
	l.log = logger.Get(Namespace).WithFields(map[string]interface{}{logger.FieldJob: p.Name})
	return l, nil
}

func (l *Log) Run(ctx context.Context) error {
	fields := make(map[string]interface{}, len(l.inputs)+1)
	for i, name := range l.RequiredInputs() {
		if i < len(l.inputs) {
			fields[name] = l.inputs[i]
		}
	}
	if info, ok := observability.RunInfoFromContext(ctx); ok {
		fields[logger.FieldIteration] = info.Iteration
	}

	switch l.level {
	case "debug":
		l.log.Debug(l.message, fields)
	case "warn":
		l.log.Warn(l.message, fields)
	default:
		l.log.Info(l.message, fields)
	}
	return nil
}

func (l *Log) SetInputs(values []any) { l.inputs = values }

func (l *Log) Output() any { return nil }
