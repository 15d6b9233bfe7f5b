// Package ingest accepts client event batches.
//
// Events are sanitized permissively: oversized strings are truncated by rune
// and missing fields get defaults rather than rejecting the batch. The batch
// is forwarded upstream as one request, after which every cached dashboard
// is invalidated on a background worker pool. Invalidation is eventual, so a
// dashboard read racing an ingestion may still see the previous view.
package ingest
