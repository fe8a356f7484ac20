package status

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHealthzOK(t *testing.T) {
	s := NewServer("EU868", prometheus.NewRegistry())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestStatusReturnsRegion(t *testing.T) {
	s := NewServer("US915", prometheus.NewRegistry())
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if !contains(rec.Body.String(), "US915") {
		t.Errorf("expected region in body, got %s", rec.Body.String())
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.UplinksTotal.Inc()
	s := NewServer("EU868", reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if !contains(rec.Body.String(), "station_uplinks_total") {
		t.Error("expected uplinks counter in metrics output")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
