package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// CheckFunc checks a single dependency and reports whether it is reachable
type CheckFunc func(ctx context.Context) bool

type dependency struct {
	name     string
	check    CheckFunc
	critical bool
}

// HealthChecker provides health check functionality over registered dependencies
type HealthChecker struct {
	version      string
	mu           sync.RWMutex
	dependencies []dependency
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version}
}

// Register adds a dependency check. A failing critical dependency makes the
// readiness endpoint return 503; any failing dependency marks the service degraded.
func (h *HealthChecker) Register(name string, check CheckFunc, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dependencies = append(h.dependencies, dependency{name: name, check: check, critical: critical})
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Services     map[string]string           `json:"services"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness check (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Health reports dependency state. It answers 200 even when degraded.
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.Check(ctx))
}

// Readiness returns 503 when a critical dependency is down
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check runs every registered dependency concurrently
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	deps := make([]dependency, len(h.dependencies))
	copy(deps, h.dependencies)
	h.mu.RUnlock()

	results := make([]DependencyStatus, len(deps))
	var wg sync.WaitGroup
	for i, dep := range deps {
		wg.Add(1)
		go func(i int, dep dependency) {
			defer wg.Done()
			start := time.Now()
			ok := dep.check(ctx)
			results[i] = DependencyStatus{
				Status:    StatusHealthy,
				Latency:   time.Since(start),
				Timestamp: time.Now(),
			}
			if !ok {
				results[i].Status = StatusUnhealthy
			}
		}(i, dep)
	}
	wg.Wait()

	status := HealthStatus{
		Status:       StatusHealthy,
		Services:     make(map[string]string, len(deps)),
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(deps)),
	}

	for i, dep := range deps {
		result := results[i]
		status.Services[dep.name] = result.Status
		status.Dependencies[dep.name] = result
		if result.Status != StatusUnhealthy {
			continue
		}
		if dep.critical {
			status.Status = StatusUnhealthy
		} else if status.Status != StatusUnhealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

// Names returns the registered dependency names in sorted order
func (h *HealthChecker) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.dependencies))
	for _, dep := range h.dependencies {
		names = append(names, dep.name)
	}
	sort.Strings(names)
	return names
}

// RegisterHealthRoutes registers the ops listener health endpoints
func RegisterHealthRoutes(serveMux *http.ServeMux, checker *HealthChecker) {
	serveMux.HandleFunc("/health", checker.Health)
	serveMux.HandleFunc("/health/live", checker.Liveness)
	serveMux.HandleFunc("/health/ready", checker.Readiness)
}
