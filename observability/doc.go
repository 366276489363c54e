// Package observability provides OpenTelemetry tracing and metrics for the
// pipeline engine.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("jobrunner"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartRunSpan(ctx, observability.SpanStage)
//	err := stage.Run(ctx)
//	observability.EndSpan(span, err)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("jobrunner"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("jobrunner"))
//	metrics.RecordIteration(ctx, "camera-feed", duration)
//
// Run identity travels in the context through WithRunInfo so that job and
// stage spans carry the pipeline name, run ID and iteration number.
package observability
