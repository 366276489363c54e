// Package job defines the contract between the pipeline runner and the units
// of work it drives.
//
// A Job is constructed from Params by a Factory, which the runner finds in a
// Registry through a handler identifier such as "builtin.Sum":
//
//	reg := job.NewRegistry()
//	reg.MustRegister("camera.Capture", func(p job.Params) (job.Job, error) {
//		return &Capture{Base: job.NewBase(p)}, nil
//	})
//
// Jobs can be decorated with WithLogging, WithTracing and WithMetrics; Unwrap
// recovers the job underneath any decorators.
package job
