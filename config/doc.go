// Package config provides the two configuration layers of the jobrunner.
//
// Store holds the pipeline document: settings, the ordered stage list, and
// one entry per task naming its handler, inputs and opaque config. Paths are
// dot-delimited and case-insensitive:
//
//	store, err := config.NewStore("pipeline.json", registry)
//	width := store.AsInt("settings.threadpool-size")
//
// ServiceConfig holds process settings (logging, telemetry, status API) and
// is loaded by LoadConfig from a jobrunner.yml file, an optional .env file and
// JOBRUNNER_* environment variables.
package config
