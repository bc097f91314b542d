package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHealthCheck struct {
	name string
	err  error
}

func (m *mockHealthCheck) Name() string { return m.name }

func (m *mockHealthCheck) Check(ctx context.Context) error { return m.err }

// slowHealthCheck blocks until its delay passes or ctx ends.
type slowHealthCheck struct {
	delay time.Duration
}

func (s *slowHealthCheck) Name() string { return "slow" }

func (s *slowHealthCheck) Check(ctx context.Context) error {
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestHealthChecker_CheckHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus string
	}{
		{"no_checks", nil, "healthy"},
		{"all_pass", []HealthCheck{&mockHealthCheck{name: "a"}, &mockHealthCheck{name: "b"}}, "healthy"},
		{"one_fails", []HealthCheck{&mockHealthCheck{name: "a"}, &mockHealthCheck{name: "b", err: errors.New("down")}}, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for _, c := range tt.checks {
				hc.AddCheck(c)
			}

			status := hc.CheckHealth(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
		})
	}
}

func TestHealthChecker_FailureMessage(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&mockHealthCheck{name: "broken", err: errors.New("disk on fire")})

	status := hc.CheckHealth(context.Background())
	assert.Equal(t, ComponentHealth{Status: "unhealthy", Message: "disk on fire"}, status.Checks["broken"])
}

func TestHealthChecker_AddReplacesAndRemove(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&mockHealthCheck{name: "x", err: errors.New("old")})
	hc.AddCheck(&mockHealthCheck{name: "x"})
	assert.Equal(t, "healthy", hc.CheckHealth(context.Background()).Status)

	hc.RemoveCheck("x")
	assert.Empty(t, hc.CheckHealth(context.Background()).Checks)
}

func TestLivenessHandler(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&mockHealthCheck{name: "broken", err: errors.New("down")})

	rec := httptest.NewRecorder()
	hc.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores checks")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ready", nil, http.StatusOK},
		{"not_ready", errors.New("down"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.AddCheck(&mockHealthCheck{name: "probe", err: tt.err})

			rec := httptest.NewRecorder()
			hc.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Contains(t, status.Checks, "probe")
		})
	}
}

func TestReadinessHandler_RequestContextBoundsChecks(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&slowHealthCheck{delay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	start := time.Now()
	hc.ReadinessHandler(rec, req)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerRoutes(t *testing.T) {
	hc := NewHealthChecker()
	srv := httptest.NewServer(hc.Handler())
	defer srv.Close()

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBreakerHealthCheck(t *testing.T) {
	open := false
	check := NewBreakerHealthCheck(func() bool { return open })
	assert.Equal(t, "breaker", check.Name())

	assert.NoError(t, check.Check(context.Background()))
	open = true
	assert.ErrorContains(t, check.Check(context.Background()), "open")
}

func TestProgressHealthCheck(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker := newProgressTracker(clock.Now)
	check := NewProgressHealthCheck(tracker, time.Minute)
	assert.Equal(t, "progress", check.Name())

	clock.Advance(59 * time.Second)
	assert.NoError(t, check.Check(context.Background()))

	clock.Advance(2 * time.Second)
	assert.ErrorContains(t, check.Check(context.Background()), "no progress for 1m1s")

	tracker.Touch()
	assert.Zero(t, tracker.Since())
	assert.NoError(t, check.Check(context.Background()))
}

func TestProgressTracker_ConcurrentTouch(t *testing.T) {
	tracker := NewProgressTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Touch()
			}
		}()
	}
	wg.Wait()
	assert.Less(t, tracker.Since(), time.Minute)
}

func TestMemoryHealthCheck(t *testing.T) {
	usage := int64(100)
	check := NewMemoryHealthCheck(512, func() int64 { return usage })
	assert.Equal(t, "memory", check.Name())
	assert.NoError(t, check.Check(context.Background()))

	usage = 600
	assert.EqualError(t, check.Check(context.Background()), "memory usage 600MB exceeds limit 512MB")
}

func TestHeapMB(t *testing.T) {
	assert.GreaterOrEqual(t, HeapMB(), int64(0))
}
