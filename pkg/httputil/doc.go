// Package httputil provides the HTTP plumbing shared by the API handlers.
//
// # Responses
//
//	httputil.WriteJSON(w, http.StatusOK, view)
//	httputil.WriteBadRequest(w, "events must not be empty")
//	httputil.WriteServiceUnavailable(w, "analytics service unavailable")
//
// Error bodies are always {"error": "..."}.
//
// # Requests
//
//	var req models.BatchEventRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	limit, err := httputil.ParseQueryIntInRange(r, "limit", 50, 1, 200)
//	useCache, err := httputil.ParseQueryBool(r, "cache", true)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.CORSMiddleware([]string{"*"}),
//		httputil.MaxBytesMiddleware(10*1024*1024), // 10MB
//	)
package httputil
