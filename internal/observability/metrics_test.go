package observability

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func initMetrics(t *testing.T, service string) http.Handler {
	t.Helper()
	handler, shutdown, err := InitMetrics(service)
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	})
	return handler
}

func TestInitMetrics_RuntimeCollectors(t *testing.T) {
	body := scrape(t, initMetrics(t, "mesplane-test"))

	for _, want := range []string{"go_goroutines", "target_info"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output, got:\n%s", want, body)
		}
	}
}

func TestInitMetrics_CustomMetricAppearsInOutput(t *testing.T) {
	handler := initMetrics(t, "mesplane-test")

	counter, err := otel.Meter("test-meter").Int64Counter("test_custom_counter")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}
	counter.Add(context.Background(), 42)

	body := scrape(t, handler)
	if !strings.Contains(body, "test_custom_counter") {
		t.Errorf("expected custom metric 'test_custom_counter' in output, got:\n%s", body)
	}
	if !strings.Contains(body, "42") {
		t.Errorf("expected value '42' in output, got:\n%s", body)
	}
	if !strings.Contains(body, `service_name="mesplane-test"`) {
		t.Errorf("expected service name on target_info, got:\n%s", body)
	}
}

// Each call owns its registry, so repeated setup does not collide.
func TestInitMetrics_Repeatable(t *testing.T) {
	first := initMetrics(t, "one")
	second := initMetrics(t, "two")

	if strings.Contains(scrape(t, second), `service_name="one"`) {
		t.Error("second registry exposes the first provider's resource")
	}
	scrape(t, first)
}
