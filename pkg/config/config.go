package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/insightflow/insightflow-bff/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Cache         CacheConfig         `yaml:"cache"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Ops server (Prometheus scrape + k8s health checks) on a separate port
	OpsPort string `yaml:"ops_port"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
}

// UpstreamConfig holds the analytics service client settings
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConnections int           `yaml:"max_connections"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
}

// CacheConfig holds cache store and view TTL settings.
// An empty RedisURL selects the in-process store.
type CacheConfig struct {
	RedisURL         string        `yaml:"redis_url"`
	RedisPoolSize    int           `yaml:"redis_pool_size"`
	MemorySize       int           `yaml:"memory_size"`
	DashboardTTL     time.Duration `yaml:"dashboard_ttl"`
	FunnelTTL        time.Duration `yaml:"funnel_ttl"`
	WarmSchedule     string        `yaml:"warm_schedule"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// IngestConfig holds event ingestion settings
type IngestConfig struct {
	MaxBatchSize          int           `yaml:"max_batch_size"`
	InvalidationWorkers   int           `yaml:"invalidation_workers"`
	InvalidationQueueSize int           `yaml:"invalidation_queue_size"`
	InvalidationTimeout   time.Duration `yaml:"invalidation_timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Format returns the log line format
func (o ObservabilityConfig) Format() observability.LogFormat {
	if strings.EqualFold(o.LogFormat, string(observability.TextFormat)) {
		return observability.TextFormat
	}
	return observability.JSONFormat
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			OpsPort:         "9090",
			AllowedOrigins:  []string{"*"},
			MaxBodyBytes:    10 << 20,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "http://localhost:8080",
			Timeout:        5 * time.Second,
			MaxConnections: 100,
			MaxIdleConns:   20,
		},
		Cache: CacheConfig{
			RedisPoolSize:    10,
			MemorySize:       1024,
			DashboardTTL:     30 * time.Second,
			FunnelTTL:        300 * time.Second,
			OperationTimeout: time.Second,
		},
		Ingest: IngestConfig{
			MaxBatchSize:          1000,
			InvalidationWorkers:   2,
			InvalidationQueueSize: 64,
			InvalidationTimeout:   5 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			LogFormat:          "json",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "insightflow-bff",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from the optional BFF_CONFIG_FILE and then
// from environment variables, which take precedence
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("BFF_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays a YAML file onto the current values
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from the environment
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("BFF_HOST", s.Host)
	s.Port = getEnv("BFF_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("BFF_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("BFF_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("BFF_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("BFF_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.OpsPort = getEnv("BFF_OPS_PORT", s.OpsPort)
	s.AllowedOrigins = getEnvList("BFF_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.MaxBodyBytes = getEnvInt64("BFF_MAX_BODY_BYTES", s.MaxBodyBytes)

	u := &c.Upstream
	u.BaseURL = getEnv("BFF_UPSTREAM_URL", u.BaseURL)
	u.Timeout = getEnvDuration("BFF_UPSTREAM_TIMEOUT", u.Timeout)
	u.MaxConnections = getEnvInt("BFF_UPSTREAM_MAX_CONNECTIONS", u.MaxConnections)
	u.MaxIdleConns = getEnvInt("BFF_UPSTREAM_MAX_IDLE_CONNS", u.MaxIdleConns)

	ch := &c.Cache
	ch.RedisURL = getEnv("BFF_REDIS_URL", ch.RedisURL)
	ch.RedisPoolSize = getEnvInt("BFF_REDIS_POOL_SIZE", ch.RedisPoolSize)
	ch.MemorySize = getEnvInt("BFF_CACHE_MEMORY_SIZE", ch.MemorySize)
	ch.DashboardTTL = getEnvSeconds("BFF_DASHBOARD_CACHE_TTL", ch.DashboardTTL)
	ch.FunnelTTL = getEnvSeconds("BFF_FUNNEL_CACHE_TTL", ch.FunnelTTL)
	ch.WarmSchedule = getEnv("BFF_WARM_SCHEDULE", ch.WarmSchedule)
	ch.OperationTimeout = getEnvDuration("BFF_CACHE_TIMEOUT", ch.OperationTimeout)

	in := &c.Ingest
	in.MaxBatchSize = getEnvInt("BFF_MAX_BATCH_SIZE", in.MaxBatchSize)
	in.InvalidationWorkers = getEnvInt("BFF_INVALIDATION_WORKERS", in.InvalidationWorkers)
	in.InvalidationQueueSize = getEnvInt("BFF_INVALIDATION_QUEUE_SIZE", in.InvalidationQueueSize)
	in.InvalidationTimeout = getEnvDuration("BFF_INVALIDATION_TIMEOUT", in.InvalidationTimeout)

	o := &c.Observability
	o.LogLevel = getEnv("BFF_LOG_LEVEL", o.LogLevel)
	o.LogFormat = getEnv("BFF_LOG_FORMAT", o.LogFormat)
	o.MetricsEnabled = getEnvBool("BFF_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("BFF_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("BFF_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("BFF_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("BFF_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("BFF_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}
	if c.Server.Port == c.Server.OpsPort {
		return fmt.Errorf("server port and ops port must be different")
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream URL must use http or https, got %q", c.Upstream.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream URL must include a host")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Upstream.MaxConnections <= 0 || c.Upstream.MaxIdleConns <= 0 {
		return fmt.Errorf("upstream connection limits must be positive")
	}

	if c.Cache.DashboardTTL <= 0 || c.Cache.FunnelTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Cache.RedisURL == "" && c.Cache.MemorySize <= 0 {
		return fmt.Errorf("cache memory size must be positive when no redis URL is set")
	}

	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be positive")
	}
	if c.Ingest.InvalidationWorkers <= 0 {
		return fmt.Errorf("invalidation workers must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvSeconds accepts either a bare number of seconds or a duration string
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
