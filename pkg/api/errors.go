package api

import (
	"errors"
	"net/http"

	"github.com/insightflow/insightflow-bff/pkg/httputil"
	"github.com/insightflow/insightflow-bff/pkg/ingest"
	"github.com/insightflow/insightflow-bff/pkg/observability"
	"github.com/insightflow/insightflow-bff/pkg/upstream"
)

// writeUpstreamError maps a single-call failure to a response. Unavailable
// upstreams are 503, upstream error statuses pass through, undecodable
// upstream bodies are 502 and anything else is 500.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := observability.FromContext(r.Context()).WithError(err).WithField("operation", op)

	if upstream.IsUnavailable(err) {
		logger.Warnf("%s failed", op)
		httputil.WriteServiceUnavailable(w, "analytics service unavailable")
		return
	}
	if status, ok := upstream.StatusCode(err); ok {
		logger.WithField("upstream_status", status).Warnf("%s failed", op)
		httputil.WriteError(w, status, err)
		return
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		logger.Warnf("%s failed", op)
		httputil.WriteError(w, http.StatusBadGateway, err)
		return
	}

	logger.Errorf("%s failed", op)
	httputil.WriteInternalError(w, err)
}

// writeIngestError maps batch validation failures to 400 and the rest to upstream errors
func writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ingest.ErrEmptyBatch) || errors.Is(err, ingest.ErrBatchTooLarge) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	writeUpstreamError(w, r, "event ingestion", err)
}
