// Package logger provides structured logging for the pipeline engine using
// zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers and field helpers for pipeline, stage and job identifiers.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline")
//	log.Info("stage finished", logger.JobFields("capture", "camera-1"))
package logger
