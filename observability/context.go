package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// RunInfo identifies the pipeline iteration a call belongs to.
type RunInfo struct {
	Pipeline  string
	RunID     string
	Iteration int64
	Stage     string
}

// runInfoKey is the context key for RunInfo.
type runInfoKey struct{}

// WithRunInfo stores a RunInfo in the context.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}

// RunInfoFromContext retrieves the RunInfo from context.
func RunInfoFromContext(ctx context.Context) (RunInfo, bool) {
	info, ok := ctx.Value(runInfoKey{}).(RunInfo)
	return info, ok
}

// WithStage returns a copy of ctx whose RunInfo names the given stage.
func WithStage(ctx context.Context, stage string) context.Context {
	info, _ := RunInfoFromContext(ctx)
	info.Stage = stage
	return WithRunInfo(ctx, info)
}

// Attributes returns the span attributes describing the run.
func (ri RunInfo) Attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if ri.Pipeline != "" {
		attrs = append(attrs, attribute.String(AttrPipeline, ri.Pipeline))
	}
	if ri.RunID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, ri.RunID))
	}
	if ri.Iteration > 0 {
		attrs = append(attrs, attribute.Int64(AttrIteration, ri.Iteration))
	}
	if ri.Stage != "" {
		attrs = append(attrs, attribute.String(AttrStage, ri.Stage))
	}
	return attrs
}
