package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/pulsecheck/health"
)

func newTestTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return newTracer(tp.Tracer("test")), recorder
}

func TestSpanName(t *testing.T) {
	if got := SpanName("redis"); got != "health.check.redis" {
		t.Errorf("SpanName() = %q, want health.check.redis", got)
	}
}

func TestTracer_StartSpanAttributes(t *testing.T) {
	tr, recorder := newTestTracer()
	cfg := health.CheckConfig{Name: "database", Readiness: true, Timeout: 2 * time.Second}

	ctx, span := tr.StartSpan(context.Background(), cfg)
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Error("returned context carries no span")
	}
	tr.EndSpan(span, health.Healthy(4*time.Millisecond), nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "health.check.database" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindInternal {
		t.Errorf("span kind = %v, want internal", s.SpanKind())
	}

	want := map[string]any{
		"check.name":       "database",
		"check.readiness":  true,
		"check.timeout_ms": int64(2000),
		"check.status":     "HEALTHY",
		"check.error":      false,
	}
	for key, expected := range want {
		v, ok := attrValue(s.Attributes(), key)
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}
		if v.AsInterface() != expected {
			t.Errorf("%s = %v, want %v", key, v.AsInterface(), expected)
		}
	}
	if v, ok := attrValue(s.Attributes(), "check.response_time_ms"); !ok || v.AsFloat64() != 4 {
		t.Errorf("check.response_time_ms = %v (present %v), want 4", v.AsFloat64(), ok)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_EndSpanStatus(t *testing.T) {
	tests := []struct {
		name     string
		result   health.Result
		err      error
		wantCode codes.Code
		wantDesc string
		wantErr  bool
	}{
		{
			name:     "degraded is ok",
			result:   health.Degraded(time.Second),
			wantCode: codes.Ok,
		},
		{
			name:     "unhealthy",
			result:   health.Unhealthy(errors.New("Redis failed: connection refused")),
			wantCode: codes.Error,
			wantDesc: "Redis failed: connection refused",
		},
		{
			name:     "unhealthy without error",
			result:   health.Result{Status: health.StatusUnhealthy},
			wantCode: codes.Error,
			wantDesc: "unhealthy",
		},
		{
			name:     "check defect",
			result:   health.Unhealthy(errors.New("boom")),
			err:      errors.New("boom"),
			wantCode: codes.Error,
			wantDesc: "boom",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, recorder := newTestTracer()
			_, span := tr.StartSpan(context.Background(), health.CheckConfig{Name: "x"})
			tr.EndSpan(span, tt.result, tt.err)

			s := recorder.Ended()[0]
			if s.Status().Code != tt.wantCode {
				t.Errorf("status code = %v, want %v", s.Status().Code, tt.wantCode)
			}
			if s.Status().Description != tt.wantDesc {
				t.Errorf("status description = %q, want %q", s.Status().Description, tt.wantDesc)
			}
			v, _ := attrValue(s.Attributes(), "check.error")
			if v.AsBool() != tt.wantErr {
				t.Errorf("check.error = %v, want %v", v.AsBool(), tt.wantErr)
			}
			if tt.wantErr && len(s.Events()) == 0 {
				t.Error("expected the error to be recorded as an event")
			}
		})
	}
}
