package selection

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Diagnostic event names. External tooling relies on their causal
// ordering to analyze commit races, so they are emitted synchronously at
// the point where the transition happens.
const (
	EventToggle               = "toggle"
	EventPersistStart         = "persist_start"
	EventPersistOk            = "persist_ok"
	EventPersistStaleRejected = "persist_stale_rejected"
	EventRender               = "render"
	EventLoad                 = "load"
)

// Observer receives ordered diagnostic events, each carrying the
// relevant version and the current caught-set size.
type Observer interface {
	Event(ctx context.Context, name string, version int64, size int)
}

// LogObserver emits events as structured logs and, when a span is
// active, as span events.
type LogObserver struct{}

func (LogObserver) Event(ctx context.Context, name string, version int64, size int) {
	slog.InfoContext(ctx, name, "ver", version, "size", size)

	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(
		attribute.Int64("ver", version),
		attribute.Int("size", size),
	))
}
