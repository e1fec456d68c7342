// Package otelobserver adapts keystone.Observer onto an OpenTelemetry
// tracer, turning each resolution lifecycle event into a span. It is kept
// outside the core package deliberately — the core exposes only the narrow
// Observer interface, and leaves wiring any particular metrics or tracing
// sink to a consumer like this one.
package otelobserver

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keystonedi/keystone"
)

// Observer emits one span per EventResolved/EventConstructionFailed event.
// EventResolving is not spanned on its own — span start is deferred until
// the matching EventResolved or EventConstructionFailed arrives, since
// keystone.Event carries no span-scoped context to thread between the two.
type Observer struct {
	tracer trace.Tracer
}

// New wraps tracer as a keystone.Observer.
func New(tracer trace.Tracer) *Observer {
	return &Observer{tracer: tracer}
}

// OnEvent implements keystone.Observer.
func (o *Observer) OnEvent(e keystone.Event) error {
	switch e.Kind {
	case keystone.EventResolved, keystone.EventConstructionFailed:
		_, span := o.tracer.Start(context.Background(), "keystone.resolve")
		defer span.End()

		span.SetAttributes(
			attribute.String("keystone.key", e.Key.String()),
			attribute.String("keystone.lifetime", e.Lifetime.String()),
			attribute.Bool("keystone.cache_hit", e.CacheHit),
		)

		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
	}
	return nil
}

var _ keystone.Observer = (*Observer)(nil)
