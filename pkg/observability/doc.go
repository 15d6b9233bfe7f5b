// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry tracing for the BFF.
//
// # Structured Logging
//
// Loggers are backed by logrus and emit JSON by default:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("client_type", "mobile").Info("dashboard served")
//
// Request-scoped loggers travel in the context:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).Warn("upstream slot failed")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.CacheHitsTotal.WithLabelValues("dashboard").Inc()
//
// # Health Checks
//
// Dependencies are registered as checks; non-critical failures degrade the
// service, critical failures fail readiness:
//
//	checker := observability.NewHealthChecker("1.0.0")
//	checker.Register("redis", store.Ping, false)
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "insightflow-bff",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
