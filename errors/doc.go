// Package errors provides the structured error model of the pipeline engine.
// Every failure surfaced by the engine is an *AppError whose Code names its
// category: structural configuration, handler resolution, missing key, job
// failure or runner state. Use HasCode to test a category through wrapping.
package errors
