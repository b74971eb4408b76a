package observability

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		endpoint string
	}{
		// gRPC dials lazily, so unreachable endpoints still initialise
		{name: "Unreachable endpoint", service: "test-service", endpoint: "invalid-endpoint:9999"},
		{name: "Local collector", service: "mesplane-controller", endpoint: "localhost:4317"},
		{name: "Empty service name", service: "", endpoint: "localhost:4317"},
		{name: "Tracing disabled", service: "mesplane-controller", endpoint: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := InitTracer(context.Background(), tt.service, tt.endpoint)
			if err != nil {
				t.Logf("InitTracer returned error (may be expected in this environment): %v", err)
				return
			}
			if shutdown == nil {
				t.Fatal("expected shutdown function to be non-nil")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		})
	}
}

func TestInitTracer_InstallsPropagator(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())

	shutdown, err := InitTracer(context.Background(), "svc", "")
	if err != nil {
		t.Fatalf("InitTracer() error: %v", err)
	}
	defer shutdown(context.Background())

	fields := otel.GetTextMapPropagator().Fields()
	found := false
	for _, f := range fields {
		if http.CanonicalHeaderKey(f) == "Traceparent" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected traceparent in propagator fields, got %v", fields)
	}
}
