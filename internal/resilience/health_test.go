package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHealthMonitorCheckAll(t *testing.T) {
	monitor := NewHealthMonitor()
	monitor.Register("up", PingCheck(func(ctx context.Context) error { return nil }, 0))
	monitor.Register("down", PingCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	}, 0))

	results := monitor.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byName := map[string]ComponentHealth{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if byName["up"].Status != HealthStatusHealthy {
		t.Errorf("up = %s, want HEALTHY", byName["up"].Status)
	}
	if byName["down"].Status != HealthStatusUnhealthy {
		t.Errorf("down = %s, want UNHEALTHY", byName["down"].Status)
	}
	if byName["down"].Message == "" {
		t.Error("unhealthy check carries no message")
	}
}

func TestPingCheckDegradedOnSlowProbe(t *testing.T) {
	check := PingCheck(func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}, time.Millisecond)

	health := check(context.Background())
	if health.Status != HealthStatusDegraded {
		t.Errorf("status = %s, want DEGRADED", health.Status)
	}
}

func TestOverallFolding(t *testing.T) {
	cases := []struct {
		statuses []HealthStatus
		want     HealthStatus
	}{
		{nil, HealthStatusUnknown},
		{[]HealthStatus{HealthStatusHealthy, HealthStatusHealthy}, HealthStatusHealthy},
		{[]HealthStatus{HealthStatusHealthy, HealthStatusDegraded}, HealthStatusDegraded},
		{[]HealthStatus{HealthStatusDegraded, HealthStatusUnhealthy}, HealthStatusUnhealthy},
	}
	for _, c := range cases {
		var results []ComponentHealth
		for _, s := range c.statuses {
			results = append(results, ComponentHealth{Status: s})
		}
		if got := Overall(results); got != c.want {
			t.Errorf("Overall(%v) = %s, want %s", c.statuses, got, c.want)
		}
	}
}
