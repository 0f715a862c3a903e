package rocrate

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// telemetry carries the crate's optional tracer and instruments. All
// methods are safe on a nil receiver, so instrumentation points never
// need to branch on whether telemetry was configured.
type telemetry struct {
	tracer          trace.Tracer
	bytesStreamed   metric.Int64Counter
	entitiesWritten metric.Int64Counter
}

const instrumentationName = "github.com/rocrateio/rocrate-go"

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil && mp == nil {
		return nil
	}
	t := &telemetry{}
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	t.tracer = tp.Tracer(instrumentationName)
	if mp != nil {
		meter := mp.Meter(instrumentationName)
		// Instrument creation only fails on invalid names; ignore and
		// leave the counter nil.
		t.bytesStreamed, _ = meter.Int64Counter("rocrate.stream.bytes",
			metric.WithDescription("Bytes produced by crate write and stream operations"),
			metric.WithUnit("By"))
		t.entitiesWritten, _ = meter.Int64Counter("rocrate.entities.written",
			metric.WithDescription("Entities materialized by crate write operations"))
	}
	return t
}

func (t *telemetry) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (t *telemetry) addBytes(ctx context.Context, n int64) {
	if t != nil && t.bytesStreamed != nil {
		t.bytesStreamed.Add(ctx, n)
	}
}

func (t *telemetry) addEntities(ctx context.Context, n int64) {
	if t != nil && t.entitiesWritten != nil {
		t.entitiesWritten.Add(ctx, n)
	}
}

func noopSpan() trace.Span {
	_, span := noop.NewTracerProvider().Tracer("").Start(context.Background(), "")
	return span
}
