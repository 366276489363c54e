// Package handlers provides the generic jobs of the "builtin" namespace.
//
//	builtin.Constant  outputs its config value
//	builtin.Counter   outputs start, start+step, ... (config: start, step)
//	builtin.Sum       outputs the sum of its numeric inputs
//	builtin.CSVSink   appends one row of inputs per iteration to a CSV file
//	builtin.Log       logs its inputs
//
// Register adds all of them to a job.Registry:
//
//	reg := job.NewRegistry()
//	if err := handlers.Register(reg); err != nil { ... }
package handlers
