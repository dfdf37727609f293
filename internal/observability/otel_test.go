package observability

import (
	"context"
	"testing"
)

func TestInitOTelDisabledReturnsNoopShutdown(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{ServiceName: "test"})
	if shutdown == nil {
		t.Fatal("shutdown must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
}

func TestOtelSampleRatioClamps(t *testing.T) {
	cases := map[string]float64{"": 1, "0.25": 0.25, "-1": 0, "3": 1, "abc": 1}
	for in, want := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", in)
		if got := otelSampleRatio(); got != want {
			t.Fatalf("ratio(%q) = %v want %v", in, got, want)
		}
	}
}

func TestOtelHeadersParsesPairs(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api=abc, bad, =v,k=")
	h := otelHeaders()
	if len(h) != 1 || h["x-api"] != "abc" {
		t.Fatalf("unexpected headers: %v", h)
	}
}
