// Package health serves liveness and readiness probes for long evolution
// runs.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthCheck is one named probe.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus is the aggregated result of all checks.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker holds the registered checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a new health check with the health checker.
// If a check with the same name already exists, it will be replaced.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks and returns the aggregated status.
// The overall status is "healthy" only if all individual checks pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler always answers 200 while the process is up.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"status": "alive"}
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler runs every check and answers 200, or 503 when any fails.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")

	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// Handler returns a mux serving /health (liveness) and /ready (readiness).
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	return mux
}

// BreakerHealthCheck reports unhealthy while the population circuit breaker
// is open.
type BreakerHealthCheck struct {
	isOpen func() bool
}

// NewBreakerHealthCheck creates a health check over a breaker state probe.
func NewBreakerHealthCheck(isOpen func() bool) *BreakerHealthCheck {
	return &BreakerHealthCheck{isOpen: isOpen}
}

// Name returns the name of this health check.
func (b *BreakerHealthCheck) Name() string {
	return "breaker"
}

// Check fails while instances are being skipped.
func (b *BreakerHealthCheck) Check(ctx context.Context) error {
	if b.isOpen() {
		return fmt.Errorf("circuit breaker is open, instances are being skipped")
	}
	return nil
}

// ProgressTracker records when the run last made progress.
type ProgressTracker struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewProgressTracker creates a tracker that counts as touched at creation.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	return &ProgressTracker{last: now(), now: now}
}

// Touch marks progress at the current time. Safe for concurrent use.
func (p *ProgressTracker) Touch() {
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}

// Since returns the time elapsed since the last Touch.
func (p *ProgressTracker) Since() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Sub(p.last)
}

// ProgressHealthCheck fails when a run has stalled.
type ProgressHealthCheck struct {
	tracker  *ProgressTracker
	maxStall time.Duration
}

// NewProgressHealthCheck creates a health check that fails once tracker has
// not been touched for longer than maxStall.
func NewProgressHealthCheck(tracker *ProgressTracker, maxStall time.Duration) *ProgressHealthCheck {
	return &ProgressHealthCheck{tracker: tracker, maxStall: maxStall}
}

// Name returns the name of this health check.
func (p *ProgressHealthCheck) Name() string {
	return "progress"
}

// Check verifies the run finished an instance recently.
func (p *ProgressHealthCheck) Check(ctx context.Context) error {
	if since := p.tracker.Since(); since > p.maxStall {
		return fmt.Errorf("no progress for %s (limit %s)", since.Round(time.Second), p.maxStall)
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies heap usage is within the limit.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// HeapMB reports the live heap in megabytes.
func HeapMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc / (1024 * 1024))
}
