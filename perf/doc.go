// Package perf records execution durations in a fixed-capacity history and
// derives rolling statistics from it. Stages and the runner each own one
// Monitor; SaveCSV exports a history for external reporting.
package perf
