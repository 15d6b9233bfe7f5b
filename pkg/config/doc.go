// Package config loads BFF configuration from an optional YAML file and the environment.
//
// Defaults are applied first, then BFF_CONFIG_FILE (if set), then BFF_* environment
// variables. LoadConfig validates the result.
//
// Server settings:
//
//	BFF_HOST="0.0.0.0"
//	BFF_PORT="8000"
//	BFF_OPS_PORT="9090"
//	BFF_ALLOWED_ORIGINS="https://dash.example,https://tv.example"
//
// Upstream analytics service:
//
//	BFF_UPSTREAM_URL="http://localhost:8080"
//	BFF_UPSTREAM_TIMEOUT="5s"
//	BFF_UPSTREAM_MAX_CONNECTIONS="100"
//	BFF_UPSTREAM_MAX_IDLE_CONNS="20"
//
// Cache (in-process LRU when BFF_REDIS_URL is empty):
//
//	BFF_REDIS_URL="redis://localhost:6379/0"
//	BFF_DASHBOARD_CACHE_TTL="30"
//	BFF_FUNNEL_CACHE_TTL="300"
//	BFF_WARM_SCHEDULE="@every 25s"
//
// Ingestion:
//
//	BFF_MAX_BATCH_SIZE="1000"
//	BFF_INVALIDATION_WORKERS="2"
//
// Observability:
//
//	BFF_LOG_LEVEL="info"
//	BFF_LOG_FORMAT="json"
//	BFF_OTEL_ENABLED="false"
//	BFF_OTEL_ENDPOINT="localhost:4317"
package config
