package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/medishop/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultScope = "medishop"

type tracer struct{ t trace.Tracer }

// New binds a tracer to tp. A nil tp resolves through the global provider at construction,
// so telemetry.InitTracerProvider must run first for spans to be recorded.
func New(tp trace.TracerProvider, scope string) observability.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if scope == "" {
		scope = defaultScope
	}
	return tracer{t: tp.Tracer(scope)}
}

func (t tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if len(attrs) == 0 {
		return t.t.Start(ctx, name)
	}
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
