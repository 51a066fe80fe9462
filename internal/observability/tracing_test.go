package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/efebarandurmaz/modgraph/internal/coupling"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "modgraph" {
		t.Fatalf("expected service name 'modgraph', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestStageSpan(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartStageSpan(context.Background(), "resolve")
	RecordGraph(span, 12, 30)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	if ended[0].Name() != "stage.resolve" {
		t.Errorf("name = %q", ended[0].Name())
	}
	a := attrs(ended[0])
	if a["modgraph.span.kind"].AsString() != SpanKindStage {
		t.Errorf("span kind = %v", a["modgraph.span.kind"])
	}
	if a["graph.files"].AsInt64() != 12 || a["graph.edges"].AsInt64() != 30 {
		t.Errorf("graph attributes = %v", a)
	}
}

func TestStrategySpan_RecordsCoupling(t *testing.T) {
	rec := recordSpans(t)
	ctx, parent := StartStageSpan(context.Background(), "analyze")
	_, span := StartStrategySpan(ctx, "louvain", 40)
	RecordCoupling(span, coupling.Summary{Communities: 3, OuterConnections: 8, OuterImports: 4, OuterExports: 4}, 2)
	span.End()
	parent.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("got %d spans, want 2", len(ended))
	}
	child := ended[0]
	if child.Name() != "strategy.louvain" {
		t.Errorf("name = %q", child.Name())
	}
	if child.Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Error("strategy span should be a child of the stage span")
	}
	a := attrs(child)
	if a["strategy.files"].AsInt64() != 40 || a["coupling.outer_connections"].AsInt64() != 8 || a["coupling.relocated"].AsInt64() != 2 {
		t.Errorf("attributes = %v", a)
	}
}

func TestRecordGateResult(t *testing.T) {
	rec := recordSpans(t)
	_, ok := StartStrategySpan(context.Background(), "current", 1)
	RecordGateResult(ok, false, "")
	ok.End()
	_, bad := StartStrategySpan(context.Background(), "greedy", 1)
	RecordGateResult(bad, true, "1 failed")
	bad.End()

	ended := rec.Ended()
	if ended[0].Status().Code == codes.Error {
		t.Error("passing gates should not mark the span as failed")
	}
	if ended[1].Status().Code != codes.Error || ended[1].Status().Description != "1 failed" {
		t.Errorf("status = %+v", ended[1].Status())
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartStageSpan(context.Background(), "emit")

	// Should not panic with nil
	RecordError(span, nil)
	RecordError(span, errors.New("disk full"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %+v", s.Status())
	}
	if len(s.Events()) != 1 {
		t.Errorf("expected one error event, got %d", len(s.Events()))
	}
}

func TestTracerName(t *testing.T) {
	if TracerName != "github.com/efebarandurmaz/modgraph" {
		t.Fatalf("unexpected tracer name: %s", TracerName)
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}
