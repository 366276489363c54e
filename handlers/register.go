package handlers

import (
	"fmt"

	"github.com/kbukum/jobrunner/job"
)

// Namespace is the handler namespace of the built-in jobs.
const Namespace = "builtin"

var factories = map[string]job.Factory{
	"Constant": NewConstant,
	"Counter":  NewCounter,
	"Sum":      NewSum,
	"CSVSink":  NewCSVSink,
	"Log":      NewLog,
}

// Register adds the built-in handlers to reg.
func Register(reg *job.Registry) error {
	for name, f := range factories {
		if err := reg.Register(Namespace+"."+name, f); err != nil {
			return fmt.Errorf("registering builtin handlers: %w", err)
		}
	}
	return nil
}
