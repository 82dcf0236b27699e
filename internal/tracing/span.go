package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on tableloop spans.
const (
	AttrPath     = attribute.Key("tableloop.path")
	AttrFormat   = attribute.Key("tableloop.format")
	AttrNode     = attribute.Key("tableloop.node")
	AttrRow      = attribute.Key("tableloop.current_row")
	AttrRows     = attribute.Key("tableloop.total_rows")
	AttrComplete = attribute.Key("tableloop.loop_complete")
	AttrCacheHit = attribute.Key("tableloop.cache_hit")
)

// StartLoadSpan starts a span around reading a table from disk.
func StartLoadSpan(ctx context.Context, tracer trace.Tracer, path, format string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "table.load",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrPath.String(path), AttrFormat.String(format)),
	)
}

// StartTickSpan starts a span for one Process call on a node.
func StartTickSpan(ctx context.Context, tracer trace.Tracer, nodeID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "looper.tick", trace.WithSpanKind(trace.SpanKindInternal))
	if nodeID != "" {
		span.SetAttributes(AttrNode.String(nodeID))
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ExtractHTTPHeaders returns ctx carrying any W3C trace context found in headers.
func ExtractHTTPHeaders(ctx context.Context, headers http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
