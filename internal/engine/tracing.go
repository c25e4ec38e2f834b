package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/seantiz/warp/internal/model"
)

// tracerName is the instrumentation scope name for run spans.
const tracerName = "github.com/seantiz/warp/internal/engine"

// spanName is the name of the span wrapping one run.
const spanName = "warp.run"

// defaultTracer returns the tracer of the global provider. It is a no-op
// until a provider is installed.
func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func runAttributes(r *model.Run) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("warp.run.id", r.ID),
		attribute.String("warp.run.name", r.Name),
		attribute.String("warp.run.policy", r.Policy),
		attribute.String("warp.queue.id", r.QueueID),
		attribute.Int("warp.run.items", r.Items),
		attribute.Int64("warp.run.storage_bytes", r.StorageBytes),
	}
}
