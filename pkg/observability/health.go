package observability

import (
	"context"
	"sync"
	"time"
)

// HealthStatus is the state of one backing service, or of the whole
// process when aggregated.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult is one probe outcome.
type HealthCheckResult struct {
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthChecker probes a single backing service.
type HealthChecker func(ctx context.Context) HealthCheckResult

// HealthRegistry holds the named checkers the readiness probe and the
// health CLI command run.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds a checker under a stable name. Registering the same
// name again replaces the previous checker.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// OverallHealth aggregates every registered check with the worst
// individual status.
type OverallHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// GetOverallHealth runs all checks concurrently and folds the results.
// Degraded never masks unhealthy.
func (r *HealthRegistry) GetOverallHealth(ctx context.Context) OverallHealth {
	r.mu.RLock()
	checkers := make(map[string]HealthChecker, len(r.checkers))
	for name, checker := range r.checkers {
		checkers[name] = checker
	}
	r.mu.RUnlock()

	type outcome struct {
		name   string
		result HealthCheckResult
	}

	ch := make(chan outcome, len(checkers))
	var wg sync.WaitGroup
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			start := time.Now()
			result := checker(ctx)
			result.Duration = time.Since(start)
			result.Timestamp = time.Now()
			ch <- outcome{name, result}
		}(name, checker)
	}
	wg.Wait()
	close(ch)

	overall := OverallHealth{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]HealthCheckResult, len(checkers)),
	}
	for o := range ch {
		overall.Checks[o.name] = o.result
		switch o.result.Status {
		case HealthStatusUnhealthy:
			overall.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
		}
	}
	return overall
}

// DatabaseHealthChecker probes PostgreSQL. The database is the one
// dependency the service cannot run without, so failure is unhealthy.
func DatabaseHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return pingChecker(ping, HealthStatusUnhealthy, "postgres unreachable")
}

// RedisHealthChecker probes the api-key cache. The cache is optional,
// lookups fall through to PostgreSQL, so failure only degrades.
func RedisHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return pingChecker(ping, HealthStatusDegraded, "redis unreachable")
}

// RabbitMQHealthChecker probes the broker. Events queue up in the
// outbox while the broker is down, so failure only degrades.
func RabbitMQHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return pingChecker(ping, HealthStatusDegraded, "rabbitmq unreachable")
}

func pingChecker(ping func(ctx context.Context) error, onFailure HealthStatus, label string) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: onFailure, Message: label + ": " + err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy}
	}
}
