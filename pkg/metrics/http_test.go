package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/v1/items", http.StatusOK, 20*time.Millisecond)
	m.Observe(http.MethodGet, "/api/v1/items", http.StatusOK, 30*time.Millisecond)
	m.Observe(http.MethodPost, "", http.StatusBadRequest, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/items", "200")); got != 2 {
		t.Fatalf("expected 2 item requests, got %f", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "unknown", "400")); got != 1 {
		t.Fatalf("expected unknown route label, got %f", got)
	}
	if count := testutil.CollectAndCount(m.duration); count != 2 {
		t.Fatalf("expected 2 latency series, got %d", count)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
