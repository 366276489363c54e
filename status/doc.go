// Package status serves a read-only HTTP API over a running pipeline:
// health, per-stage performance statistics, the job list and the dependency
// graph. It is built on Gin and runs as a component next to the runner.
//
//	GET /health          process and component health
//	GET /performance     runner snapshot with iteration and stage statistics
//	GET /jobs            jobs in parse order
//	GET /jobs/:name      one job, 404 if unknown
//	GET /graph           dependency graph in DOT format
package status
