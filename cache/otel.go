package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fncache/go-fncache/cache"

// Traced decorates a Backend with an OpenTelemetry span per operation.
type Traced struct {
	backend Backend
	tracer  trace.Tracer
}

var _ Backend = (*Traced)(nil)

// NewTraced wraps backend so every operation produces a span from the
// global tracer provider.
func NewTraced(backend Backend) *Traced {
	return &Traced{
		backend: backend,
		tracer:  otel.Tracer(tracerName),
	}
}

func (t *Traced) span(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("cache.key", key)),
	)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Traced) Get(ctx context.Context, key string) (bool, []byte, error) {
	ctx, span := t.span(ctx, "get", key)
	found, val, err := t.backend.Get(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", found))
	end(span, err)
	return found, val, err
}

func (t *Traced) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := t.span(ctx, "set", key)
	span.SetAttributes(attribute.Int("cache.value_size", len(value)))
	err := t.backend.Set(ctx, key, value, ttl)
	end(span, err)
	return err
}

func (t *Traced) Remove(ctx context.Context, key string) error {
	ctx, span := t.span(ctx, "remove", key)
	err := t.backend.Remove(ctx, key)
	end(span, err)
	return err
}

func (t *Traced) Contains(ctx context.Context, key string) (bool, error) {
	ctx, span := t.span(ctx, "contains", key)
	found, err := t.backend.Contains(ctx, key)
	end(span, err)
	return found, err
}

func (t *Traced) Clear(ctx context.Context) error {
	ctx, span := t.span(ctx, "clear", "")
	err := t.backend.Clear(ctx)
	end(span, err)
	return err
}
