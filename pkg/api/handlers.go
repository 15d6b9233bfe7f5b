package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/insightflow/insightflow-bff/pkg/adapter"
	"github.com/insightflow/insightflow-bff/pkg/httputil"
	"github.com/insightflow/insightflow-bff/pkg/models"
	"github.com/insightflow/insightflow-bff/pkg/views"
)

// Limits for GET /bff/user/{user_id}/analytics?limit=
const (
	defaultEventLimit = 50
	minEventLimit     = 1
	maxEventLimit     = 200
)

// getDashboard handles GET /bff/{client_type}/dashboard?cache=bool
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	useCache, err := httputil.ParseQueryBool(r, "cache", true)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	clientType := adapter.ParseClientType(mux.Vars(r)["client_type"])
	view := s.resolver.Dashboard(r.Context(), clientType, useCache)

	httputil.WriteSuccess(w, view)
}

// getRealtime handles GET /bff/stats/realtime
func (s *Server) getRealtime(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.resolver.Realtime(r.Context()))
}

// postEventBatch handles POST /bff/events/batch
func (s *Server) postEventBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchEventRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	resp, err := s.pipeline.Ingest(r.Context(), req.Events)
	if err != nil {
		writeIngestError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, resp)
}

// getUserAnalytics handles GET /bff/user/{user_id}/analytics?limit=N
func (s *Server) getUserAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}
	limit, err := httputil.ParseQueryIntInRange(r, "limit", defaultEventLimit, minEventLimit, maxEventLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	analytics, err := s.resolver.UserAnalytics(r.Context(), userID, limit)
	if err != nil {
		writeUpstreamError(w, r, "user analytics", err)
		return
	}

	httputil.WriteSuccess(w, analytics)
}

// getFunnel handles GET /bff/funnel/analysis?funnel_id=&cache=bool
func (s *Server) getFunnel(w http.ResponseWriter, r *http.Request) {
	useCache, err := httputil.ParseQueryBool(r, "cache", true)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	funnelID := httputil.ParseQueryString(r, "funnel_id", views.DefaultFunnelID)

	funnel, err := s.resolver.Funnel(r.Context(), funnelID, useCache)
	if err != nil {
		writeUpstreamError(w, r, "funnel analysis", err)
		return
	}

	httputil.WriteSuccess(w, funnel)
}

// getSystemMetrics handles GET /metrics on the API listener
func (s *Server) getSystemMetrics(w http.ResponseWriter, r *http.Request) {
	memoryUsed := "unknown"
	if s.store != nil {
		if used, ok := s.store.MemoryInfo(r.Context())["used_memory_human"]; ok {
			memoryUsed = used
		}
	}

	hitRate := "unknown"
	if stats := s.resolver.CacheStats(); stats.Hits+stats.Misses > 0 {
		hitRate = fmt.Sprintf("%.2f%%", stats.HitRate*100)
	}

	httputil.WriteSuccess(w, models.SystemMetrics{
		RedisMemoryUsed:   memoryUsed,
		ActiveConnections: fmt.Sprintf("%d", s.ActiveConnections()),
		CacheHitRate:      hitRate,
		Timestamp:         s.now().Format(time.RFC3339),
	})
}
