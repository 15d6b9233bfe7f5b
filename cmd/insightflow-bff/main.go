package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/insightflow/insightflow-bff/pkg/aggregator"
	"github.com/insightflow/insightflow-bff/pkg/api"
	"github.com/insightflow/insightflow-bff/pkg/async"
	"github.com/insightflow/insightflow-bff/pkg/cache"
	"github.com/insightflow/insightflow-bff/pkg/config"
	"github.com/insightflow/insightflow-bff/pkg/ingest"
	"github.com/insightflow/insightflow-bff/pkg/observability"
	"github.com/insightflow/insightflow-bff/pkg/upstream"
	"github.com/insightflow/insightflow-bff/pkg/views"
)

var version = "1.0.0"

func main() {
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLoggerWithFormat(cfg.Observability.Level(), cfg.Observability.Format(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("InsightFlow BFF exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	store, err := newStore(cfg.Cache, logger, metrics)
	if err != nil {
		return err
	}

	client := upstream.NewClient(upstream.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		Timeout:        cfg.Upstream.Timeout,
		MaxConnections: cfg.Upstream.MaxConnections,
		MaxIdleConns:   cfg.Upstream.MaxIdleConns,
	}, logger, metrics)
	logger.Infof("Analytics service at %s", client.BaseURL())

	resolver := views.NewResolver(
		aggregator.New(client, logger, metrics),
		client,
		store,
		views.Config{DashboardTTL: cfg.Cache.DashboardTTL, FunnelTTL: cfg.Cache.FunnelTTL},
		logger,
		metrics,
	)

	pool := async.NewWorkerPool(ctx, async.PoolConfig{
		Workers:   cfg.Ingest.InvalidationWorkers,
		QueueSize: cfg.Ingest.InvalidationQueueSize,
		TaskName:  "cache invalidation",
		Timeout:   cfg.Ingest.InvalidationTimeout,
		Logger:    logger,
	})
	pipeline := ingest.NewPipeline(client, store, pool, logger, metrics, ingest.WithMaxBatchSize(cfg.Ingest.MaxBatchSize))

	health := observability.NewHealthChecker(version)
	health.Register("redis", store.Ping, false)
	health.Register("upstream", client.HealthCheck, false)

	server := api.NewServer(api.Dependencies{
		Resolver: resolver,
		Pipeline: pipeline,
		Store:    store,
		Health:   health,
		Logger:   logger,
		Metrics:  metrics,
	}, api.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ConnState:    server.TrackConnState,
		ErrorLog:     log.New(logger.Writer(), "", 0),
	}

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.OpsPort),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)

	var warmer *views.Warmer
	if cfg.Cache.WarmSchedule != "" {
		warmer, err = views.NewWarmer(resolver, cfg.Cache.WarmSchedule, cfg.Upstream.Timeout*2, logger)
		if err != nil {
			return err
		}
		warmer.Start()
		async.SafeGo(ctx, logger, cfg.Upstream.Timeout*2, "initial dashboard warm", warmer.WarmAll)
		shutdown.RegisterShutdownFunc("dashboard warmer", warmer.Stop)
	}

	shutdown.RegisterShutdownFunc("invalidation pool", func(ctx context.Context) error {
		return pool.Shutdown(remaining(ctx, cfg.Ingest.InvalidationTimeout))
	})
	shutdown.RegisterShutdownFunc("cache store", func(context.Context) error {
		return store.Close()
	})
	shutdown.RegisterShutdownFunc("upstream client", func(context.Context) error {
		return client.Close()
	})
	shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	serverErrs := make(chan error, 2)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		srv := srv
		go func() {
			defer observability.RecoverPanic(logger, "http server "+srv.Addr)
			logger.Infof("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrs <- fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
		}()
	}

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- shutdown.WaitForShutdown()
	}()

	select {
	case err := <-serverErrs:
		if shutdownErr := shutdown.Shutdown(); shutdownErr != nil {
			logger.WithError(shutdownErr).Error("Shutdown after server failure incomplete")
		}
		return err
	case err := <-shutdownDone:
		return err
	}
}

// newStore selects Redis when a URL is configured, else the in-process LRU store
func newStore(cfg config.CacheConfig, logger *observability.Logger, metrics *observability.Metrics) (cache.Store, error) {
	if cfg.RedisURL == "" {
		logger.Infof("No Redis URL configured, using in-memory cache with %d entries", cfg.MemorySize)
		return cache.NewMemoryStore(cfg.MemorySize, logger, metrics)
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.OperationTimeout,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cache: %w", err)
	}
	return store, nil
}

// remaining is the time left before ctx's deadline, capped at max
func remaining(ctx context.Context, max time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return max
	}
	if left := time.Until(deadline); left < max {
		return left
	}
	return max
}
