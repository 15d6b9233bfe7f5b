package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	metrics.UpstreamRequestsTotal.WithLabelValues("GET", "/api/stats/online", "ok").Inc()
	metrics.CacheHitsTotal.WithLabelValues("dashboard").Inc()
	metrics.CacheMissesTotal.WithLabelValues("dashboard").Inc()
	metrics.CacheErrorsTotal.WithLabelValues("get").Inc()
	metrics.AggregatorSlotFailuresTotal.WithLabelValues("hot_pages").Inc()
	metrics.EventsIngestedTotal.Add(3)
	metrics.IngestFailuresTotal.Inc()
	metrics.CacheInvalidationsTotal.WithLabelValues("ok").Inc()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(families) != 9 {
		t.Errorf("Expected 9 metric families, got %d", len(families))
	}

	if got := testutil.ToFloat64(metrics.EventsIngestedTotal); got != 3 {
		t.Errorf("Expected 3 ingested events, got %v", got)
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	NewMetrics(registry)
}

func TestNewUnregisteredMetrics(t *testing.T) {
	a := NewUnregisteredMetrics()
	b := NewUnregisteredMetrics()
	a.CacheHitsTotal.WithLabelValues("funnel").Inc()

	if got := testutil.ToFloat64(b.CacheHitsTotal.WithLabelValues("funnel")); got != 0 {
		t.Errorf("Expected isolated registries, got %v", got)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	t.Run("labels by route template", func(t *testing.T) {
		metrics := NewUnregisteredMetrics()

		router := mux.NewRouter()
		router.Use(HTTPMetricsMiddleware(metrics))
		router.HandleFunc("/bff/{client_type}/dashboard", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		for _, path := range []string{"/bff/web/dashboard", "/bff/mobile/dashboard"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		}

		expected := `
# HELP bff_http_requests_total Total number of HTTP requests
# TYPE bff_http_requests_total counter
bff_http_requests_total{method="GET",route="/bff/{client_type}/dashboard",status="200"} 2
`
		if err := testutil.CollectAndCompare(metrics.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
			t.Errorf("Unexpected counter value: %v", err)
		}
		if count := testutil.CollectAndCount(metrics.HTTPRequestDuration); count != 1 {
			t.Errorf("Expected 1 duration series, got %d", count)
		}
	})

	t.Run("records status codes", func(t *testing.T) {
		metrics := NewUnregisteredMetrics()

		handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

		got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "503"))
		if got != 1 {
			t.Errorf("Expected 1 unmatched 503, got %v", got)
		}
	})
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.EventsIngestedTotal.Inc()

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rec := httptest.NewRecorder()
	serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "bff_events_ingested_total 1") {
		t.Errorf("Expected exposition to contain ingested counter, got:\n%s", body)
	}
}
