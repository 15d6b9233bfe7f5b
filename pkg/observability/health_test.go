package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) bool   { return true }
func down(context.Context) bool { return false }

func TestHealthChecker_Check(t *testing.T) {
	tests := []struct {
		name     string
		register func(h *HealthChecker)
		want     string
	}{
		{
			name:     "no dependencies",
			register: func(h *HealthChecker) {},
			want:     StatusHealthy,
		},
		{
			name: "all healthy",
			register: func(h *HealthChecker) {
				h.Register("redis", up, false)
				h.Register("upstream", up, false)
			},
			want: StatusHealthy,
		},
		{
			name: "non-critical failure degrades",
			register: func(h *HealthChecker) {
				h.Register("redis", down, false)
				h.Register("upstream", up, false)
			},
			want: StatusDegraded,
		},
		{
			name: "critical failure is unhealthy",
			register: func(h *HealthChecker) {
				h.Register("redis", down, false)
				h.Register("upstream", down, true)
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker("1.2.3")
			tt.register(h)

			status := h.Check(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, "1.2.3", status.Version)
			assert.Len(t, status.Services, len(h.Names()))
		})
	}
}

func TestHealthChecker_ServicesMap(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("redis", down, false)
	h.Register("upstream", up, false)

	status := h.Check(context.Background())
	assert.Equal(t, map[string]string{
		"redis":    StatusUnhealthy,
		"upstream": StatusHealthy,
	}, status.Services)
	assert.Equal(t, []string{"redis", "upstream"}, h.Names())
}

func TestHealthChecker_Handlers(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("redis", down, false)
	h.Register("upstream", down, true)

	serveMux := http.NewServeMux()
	RegisterHealthRoutes(serveMux, h)

	t.Run("liveness always ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health answers 200 with status body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, StatusUnhealthy, body.Status)
		assert.Equal(t, StatusUnhealthy, body.Services["redis"])
	})

	t.Run("readiness fails on critical dependency", func(t *testing.T) {
		rec := httptest.NewRecorder()
		serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHealthChecker_ReadinessDegradedIsReady(t *testing.T) {
	h := NewHealthChecker("1.0.0")
	h.Register("redis", down, false)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
