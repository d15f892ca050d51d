package resilience

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
)

// ComponentHealth represents the health of a single upstream.
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency"`
}

// HealthCheck probes one upstream and reports its health.
type HealthCheck func(ctx context.Context) ComponentHealth

// HealthMonitor runs registered checks against the tracker's upstreams:
// the quotes service, the signals API and the order backend.
type HealthMonitor struct {
	mu         sync.RWMutex
	components map[string]HealthCheck
	results    map[string]ComponentHealth
}

// NewHealthMonitor creates an empty monitor.
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		components: make(map[string]HealthCheck),
		results:    make(map[string]ComponentHealth),
	}
}

// Register adds a named health check.
func (m *HealthMonitor) Register(name string, check HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[name] = check
}

// CheckAll runs every registered check and returns the results sorted
// by component name. Checks run sequentially; upstream probes are
// cheap and few.
func (m *HealthMonitor) CheckAll(ctx context.Context) []ComponentHealth {
	m.mu.Lock()
	names := make([]string, 0, len(m.components))
	checks := make(map[string]HealthCheck, len(m.components))
	for name, check := range m.components {
		names = append(names, name)
		checks[name] = check
	}
	m.mu.Unlock()
	sort.Strings(names)

	var results []ComponentHealth
	for _, name := range names {
		started := time.Now()
		health := checks[name](ctx)
		health.Name = name
		health.LastCheck = time.Now()
		if health.Latency == 0 {
			health.Latency = time.Since(started)
		}

		m.mu.Lock()
		m.results[name] = health
		m.mu.Unlock()
		results = append(results, health)
	}
	return results
}

// Overall folds component healths into one status: any UNHEALTHY makes
// the system unhealthy, any DEGRADED makes it degraded.
func Overall(results []ComponentHealth) HealthStatus {
	if len(results) == 0 {
		return HealthStatusUnknown
	}
	overall := HealthStatusHealthy
	for _, r := range results {
		switch r.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			overall = HealthStatusDegraded
		}
	}
	return overall
}

// PingCheck builds a check from a probe function, mapping errors to
// UNHEALTHY and slow probes to DEGRADED.
func PingCheck(probe func(ctx context.Context) error, degradedAfter time.Duration) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		started := time.Now()
		err := probe(ctx)
		latency := time.Since(started)

		health := ComponentHealth{Status: HealthStatusHealthy, Latency: latency}
		if err != nil {
			health.Status = HealthStatusUnhealthy
			health.Message = err.Error()
		} else if degradedAfter > 0 && latency > degradedAfter {
			health.Status = HealthStatusDegraded
			health.Message = "slow response"
		}
		return health
	}
}
