package api

import (
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/insightflow/insightflow-bff/pkg/cache"
	"github.com/insightflow/insightflow-bff/pkg/httputil"
	"github.com/insightflow/insightflow-bff/pkg/ingest"
	"github.com/insightflow/insightflow-bff/pkg/observability"
	"github.com/insightflow/insightflow-bff/pkg/views"
)

// Config holds HTTP surface settings
type Config struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Dependencies are the process-wide components the handlers serve from
type Dependencies struct {
	Resolver *views.Resolver
	Pipeline *ingest.Pipeline
	Store    cache.Store
	Health   *observability.HealthChecker
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Server is the BFF HTTP API
type Server struct {
	router   *mux.Router
	handler  http.Handler
	resolver *views.Resolver
	pipeline *ingest.Pipeline
	store    cache.Store
	health   *observability.HealthChecker
	logger   *observability.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	activeConns atomic.Int64
}

// NewServer creates the API server and its middleware stack
func NewServer(deps Dependencies, cfg Config) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewUnregisteredMetrics()
	}
	if deps.Health == nil {
		deps.Health = observability.NewHealthChecker("")
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}

	s := &Server{
		router:   mux.NewRouter(),
		resolver: deps.Resolver,
		pipeline: deps.Pipeline,
		store:    deps.Store,
		health:   deps.Health,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		now:      time.Now,
	}

	s.setupRoutes()
	s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))

	chain := httputil.Chain(
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(cfg.AllowedOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)
	s.handler = otelhttp.NewHandler(chain(s.router), "insightflow-bff")

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Specific paths first so they never match as a client type. Routes stay
	// on the root router so a wrong method yields 405 rather than 404.
	s.router.HandleFunc("/bff/stats/realtime", s.getRealtime).Methods("GET")
	s.router.HandleFunc("/bff/events/batch", s.postEventBatch).Methods("POST")
	s.router.HandleFunc("/bff/user/{user_id}/analytics", s.getUserAnalytics).Methods("GET")
	s.router.HandleFunc("/bff/funnel/analysis", s.getFunnel).Methods("GET")
	s.router.HandleFunc("/bff/{client_type}/dashboard", s.getDashboard).Methods("GET")

	s.router.HandleFunc("/health", s.health.Health).Methods("GET")
	s.router.HandleFunc("/metrics", s.getSystemMetrics).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// TrackConnState counts open client connections. Install it as http.Server.ConnState.
func (s *Server) TrackConnState(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.activeConns.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.activeConns.Add(-1)
	}
}

// ActiveConnections returns the number of open client connections
func (s *Server) ActiveConnections() int64 {
	return s.activeConns.Load()
}
