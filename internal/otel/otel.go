package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	reqid "github.com/hanpama/sineql/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures an OTLP/gRPC exporter and attaches span subscribers to
// bus. If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unregister := Register(bus, tp.Tracer("sineql"))
	return func(ctx context.Context) error {
		unregister()
		return tp.Shutdown(ctx)
	}, nil
}

// Register turns the events published on bus into spans of tracer:
// http.request > sineql.query > sineql.handler. Spans are paired through the
// request ID in the event context and, for handlers, the call ID.
func Register(bus *eventbus.Bus, tracer trace.Tracer) (unregister func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type subscriber struct {
	tracer       trace.Tracer
	httpSpans    sync.Map // rid -> trace.Span
	querySpans   sync.Map // query id -> trace.Span
	handlerSpans sync.Map // callKey -> trace.Span
}

// callKey scopes handler call IDs to their query, since engines sharing a bus
// number their calls independently.
type callKey struct {
	query string
	call  uint64
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Route != "" {
				span.SetAttributes(semconv.HTTPRouteKey.String(e.Route))
			}
			span.End()
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.QueryStart) {
			parent := ctx
			if v, ok := s.httpSpans.Load(e.QueryID); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "sineql.query")
			span.SetAttributes(
				attribute.String("sineql.query_id", e.QueryID),
				attribute.String("sineql.query", e.Query),
			)
			s.querySpans.Store(e.QueryID, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.QueryFinish) {
			v, ok := s.querySpans.LoadAndDelete(e.QueryID)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("sineql.records", e.Records))
			if e.Err != nil {
				span.SetAttributes(attribute.String("sineql.error_code", e.Code))
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Code)
			}
			span.End()
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.HandlerStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			if v, ok := s.querySpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "sineql.handler")
			span.SetAttributes(
				attribute.String("sineql.type", e.Type),
				attribute.StringSlice("sineql.attributes", e.Attributes),
				attribute.Int("sineql.filter_fields", len(e.Filter)),
			)
			s.handlerSpans.Store(callKey{rid, e.CallID}, span)
		}),

		eventbus.Subscribe(bus, func(ctx context.Context, e events.HandlerFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.handlerSpans.LoadAndDelete(callKey{rid, e.CallID})
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Int("sineql.records", e.Records),
				attribute.Bool("sineql.skipped", e.Skipped),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
