package build

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies the build pipeline's tracer. The tracer resolves
// from the global provider; configure that in main().
const tracerName = "kiln/build"

// stageTracker wraps each pipeline stage in a span, a duration
// observation and a progress callback.
type stageTracker struct {
	tracer     trace.Tracer
	metrics    *metrics
	onProgress func(string)
}

func (t *stageTracker) run(ctx context.Context, name, message string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	if t.onProgress != nil && message != "" {
		t.onProgress(message)
	}

	start := time.Now()
	ctx, span := t.tracer.Start(ctx, "build."+name, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	t.metrics.observeStage(name, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
