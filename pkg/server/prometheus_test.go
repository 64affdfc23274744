package server

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kylerisse/metricstore/pkg/config"
	"github.com/kylerisse/metricstore/pkg/store"
)

func TestHandlePrometheus_StoreOperations(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	h := s.Handler()

	do(t, h, "PUT", "/api/metrics?"+metricQuery(""), `{"value": 1}`)
	do(t, h, "GET", "/api/metrics?"+metricQuery(""), "")
	do(t, h, "GET", "/api/metrics?"+metricQuery(""), "")

	w := do(t, h, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("expected text/plain, got %q", ct)
	}

	body := w.Body.String()
	for _, line := range []string{
		"# TYPE metricstore_operations_total counter",
		"# TYPE metricstore_operation_failures_total counter",
		`metricstore_operations_total{store="metric_store", op="set"} 1`,
		`metricstore_operations_total{store="metric_store", op="get"} 2`,
		`metricstore_operation_failures_total{store="metric_store", op="get"} 0`,
		`metricstore_operation_duration_seconds_total{store="metric_store", op="get"}`,
	} {
		if !strings.Contains(body, line) {
			t.Errorf("expected %q in output:\n%s", line, body)
		}
	}
}

func TestHandlePrometheus_Failures(t *testing.T) {
	s, stats := newTestServer(t, config.ServerConfig{})
	stats.Observe(store.Observation{Store: "weird\"store", Op: store.OpRemove, Err: errors.New("boom"), Duration: 1500 * time.Millisecond})

	w := do(t, s.Handler(), "GET", "/metrics", "")
	body := w.Body.String()

	if !strings.Contains(body, `metricstore_operation_failures_total{store="weird\"store", op="remove"} 1`) {
		t.Errorf("expected escaped failure line, got:\n%s", body)
	}
	if !strings.Contains(body, `metricstore_operation_duration_seconds_total{store="weird\"store", op="remove"} 1.5`) {
		t.Errorf("expected duration line, got:\n%s", body)
	}
}

func TestHandlePrometheus_Empty(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})

	body := do(t, s.Handler(), "GET", "/metrics", "").Body.String()
	if strings.Contains(body, "metricstore_operations_total{") {
		t.Errorf("expected no samples before any operation, got:\n%s", body)
	}
}

func TestSanitizePrometheusLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{`back\slash`, `back\\slash`},
		{`with"quote`, `with\"quote`},
		{"new\nline", `new\nline`},
	}
	for _, tt := range tests {
		if got := sanitizePrometheusLabel(tt.input); got != tt.expected {
			t.Errorf("sanitizePrometheusLabel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
