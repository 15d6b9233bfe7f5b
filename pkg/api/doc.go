// Package api serves the backend-for-frontend HTTP surface.
//
// # Routes
//
//	GET  /bff/{client_type}/dashboard?cache=bool   client-adapted dashboard
//	GET  /bff/stats/realtime                       uncached live counters
//	POST /bff/events/batch                         event ingestion
//	GET  /bff/user/{user_id}/analytics?limit=N     recent events plus behavior summary
//	GET  /bff/funnel/analysis?funnel_id=&cache=    funnel analysis
//	GET  /health                                   dependency status
//	GET  /metrics                                  cache and connection summary (JSON)
//
// Unknown client types are served the web view. Dashboard and realtime views
// never fail because of the analytics service; missing data becomes zeros.
// Funnel, user analytics and ingestion propagate upstream failures: an
// unreachable service is a 503 and an upstream error status is passed through.
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{
//		Resolver: resolver,
//		Pipeline: pipeline,
//		Store:    store,
//		Health:   health,
//		Logger:   logger,
//		Metrics:  metrics,
//	}, api.Config{AllowedOrigins: []string{"*"}})
//	httpServer := &http.Server{Addr: ":8000", Handler: server, ConnState: server.TrackConnState}
package api
