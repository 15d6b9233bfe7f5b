package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/insightflow/insightflow-bff/pkg/observability"
)

// Config holds client connection settings
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxConnections int
	MaxIdleConns   int
}

// DefaultConfig returns the client defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8080",
		Timeout:        5 * time.Second,
		MaxConnections: 100,
		MaxIdleConns:   20,
	}
}

// Client talks to the analytics service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	transport  *http.Transport
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewClient creates a client with a pooled transport bounded by cfg
func NewClient(cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaults.MaxConnections
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaults.MaxIdleConns
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		transport: transport,
		logger:    logger.WithField("component", "upstream"),
		metrics:   metrics,
	}
}

// BaseURL returns the configured service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get calls GET {base}/api{endpoint} and decodes the JSON body into out
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	target := c.baseURL + "/api" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
	}
	return c.do(req, endpoint, out)
}

// Post sends body as JSON to {base}/api{endpoint} and decodes the response into out
func (c *Client) Post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.UpstreamRequestsTotal.WithLabelValues(req.Method, metricEndpoint(endpoint), outcome).Inc()
		c.metrics.UpstreamRequestDuration.WithLabelValues(req.Method, metricEndpoint(endpoint)).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = KindUnavailable.String()
		c.logger.WithError(err).WithField("endpoint", endpoint).Warn("Upstream request failed")
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = KindBadStatus.String()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.logger.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Warn("Upstream returned error status")
		return &Error{Kind: KindBadStatus, StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		outcome = KindInvalidResponse.String()
		return &Error{Kind: KindInvalidResponse, StatusCode: resp.StatusCode, Endpoint: endpoint, Err: err}
	}
	return nil
}

// HealthCheck calls {base}/health and is true only on a 200
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Close releases idle pooled connections
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// metricEndpoint collapses path parameters so label cardinality stays bounded
func metricEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "/user/"):
		return "/user/{id}/events"
	case strings.HasPrefix(endpoint, "/funnel/"):
		return "/funnel/{id}/analysis"
	default:
		return endpoint
	}
}
