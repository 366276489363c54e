// Package bootstrap runs the jobrunner process lifecycle.
//
// An App validates the service configuration, initializes logging, starts the
// registered components in order (telemetry, the status server, the pipeline
// runner), prints a startup summary and stops everything in reverse order on
// exit.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(pipeline.NewComponent(runner))
//	err = app.Run(ctx)            // background mode, until SIGINT/SIGTERM
//	err = app.RunTask(ctx, task)  // foreground mode, until task returns
package bootstrap
