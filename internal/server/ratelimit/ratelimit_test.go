package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func testLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	l := newLimiter(cfg, clock.Now)
	t.Cleanup(l.Stop)
	return l, clock
}

func TestTokenBucket_BurstThenDeny(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(3, 1, now)

	for i := 0; i < 3; i++ {
		allowed, remaining, _, _ := b.take(now)
		assert.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, _, _, retryAfter := b.take(now)
	assert.False(t, allowed)
	assert.Equal(t, time.Second, retryAfter)
}

func TestTokenBucket_Refill(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(2, 0.5, now)
	b.take(now)
	b.take(now)

	allowed, _, _, _ := b.take(now.Add(time.Second))
	assert.False(t, allowed, "half a token is not enough")

	allowed, _, reset, _ := b.take(now.Add(2 * time.Second))
	assert.True(t, allowed)
	assert.Equal(t, now.Add(6*time.Second), reset, "two missing tokens at 0.5/s")
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(2, 10, now)

	_, remaining, reset, _ := b.take(now.Add(time.Hour))
	assert.Equal(t, 1, remaining)
	assert.True(t, reset.After(now.Add(time.Hour)))
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, clock := testLimiter(t, &Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute})

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/api/contracts", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
	}

	allowed, info := l.Allow("10.0.0.1", "/api/contracts", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 12, info.RetryAfter.Seconds(), 0.001)

	clock.Advance(13 * time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/api/contracts", "GET")
	assert.True(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := testLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})

	allowed, _ := l.Allow("10.0.0.1", "/api/contracts", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("10.0.0.1", "/api/contracts", "GET")
	assert.False(t, allowed)

	allowed, _ = l.Allow("10.0.0.2", "/api/contracts", "GET")
	assert.True(t, allowed)
}

func TestLimiter_AuditEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 0
	l, _ := testLimiter(t, cfg)

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", AuditPath, "POST")
		require.True(t, allowed, "burst request %d", i+1)
		assert.Equal(t, 30, info.Limit)
	}
	allowed, info := l.Allow("10.0.0.1", AuditPath, "POST")
	assert.False(t, allowed)
	assert.InDelta(t, 120, info.RetryAfter.Seconds(), 0.001, "30 per hour refills one every two minutes")

	// Reads are unaffected.
	allowed, _ = l.Allow("10.0.0.1", "/api/contracts", "GET")
	assert.True(t, allowed)
}

func TestLimiter_PrefixRuleSharesBucketAcrossIDs(t *testing.T) {
	l, _ := testLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/contracts/", Method: "DELETE", Limit: 2, Window: time.Minute},
		},
	})

	for i := 0; i < 2; i++ {
		allowed, _ := l.Allow("10.0.0.1", fmt.Sprintf("/api/contracts/%d", i), "DELETE")
		require.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.1", "/api/contracts/other", "DELETE")
	assert.False(t, allowed, "a new ID must not reset the bucket")
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Lists(t *testing.T) {
	l, _ := testLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.9": true},
		Blacklist:     map[string]bool{"10.0.0.6": true},
	})

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("10.0.0.9", "/api/contracts", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := l.Allow("10.0.0.6", "/api/contracts", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := testLimiter(t, &Config{Enabled: false})

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("10.0.0.1", AuditPath, "POST")
		require.True(t, allowed)
	}
	assert.Zero(t, l.Size())
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	l, _ := testLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, clock := testLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Hour})

	l.Allow("10.0.0.1", "/api/contracts", "GET")
	clock.Advance(30 * time.Minute)
	l.Allow("10.0.0.2", "/api/contracts", "GET")
	require.Equal(t, 2, l.Size())

	clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, l.evictIdle())
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := testLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("10.0.0.1", "/api/contracts", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/contracts/", Method: "GET", Limit: 1},
		{Path: "/api/contracts/export.xlsx", Method: "GET", Limit: 2},
		{Path: "/api/contracts/special/", Method: "GET", Limit: 3},
		{Path: AuditPath, Method: "POST", Limit: 4},
	}

	tests := []struct {
		name   string
		path   string
		method string
		limit  int
		found  bool
	}{
		{name: "exact", path: "/api/contracts/export.xlsx", method: "GET", limit: 2, found: true},
		{name: "prefix", path: "/api/contracts/abc", method: "GET", limit: 1, found: true},
		{name: "longest prefix", path: "/api/contracts/special/x", method: "GET", limit: 3, found: true},
		{name: "method mismatch", path: AuditPath, method: "GET"},
		{name: "exact path is not a prefix", path: AuditPath + "/x", method: "POST"},
		{name: "health", path: "/health", method: "GET", limit: 0, found: true},
		{name: "unknown", path: "/other", method: "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if !tt.found {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.limit, got.Limit)
		})
	}
}

func TestLoadConfigFrom(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":    "42",
		"RATE_LIMIT_DEFAULT_WINDOW":   "30s",
		"RATE_LIMIT_WHITELIST":        " 10.0.0.1, ,10.0.0.2",
		"RATE_LIMIT_AUDIT_LIMIT":      "3",
		"RATE_LIMIT_AUDIT_WINDOW":     "10m",
		"RATE_LIMIT_CLEANUP_INTERVAL": "not-a-duration",
	}
	cfg := LoadConfigFrom(func(k string) string { return env[k] })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval, "invalid values keep the default")
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)

	audit := MatchEndpoint(AuditPath, "POST", cfg.EndpointConfigs)
	require.NotNil(t, audit)
	assert.Equal(t, 3, audit.Limit)
	assert.Equal(t, 3, audit.Burst)
	assert.Equal(t, 10*time.Minute, audit.Window)
}

func TestLoadConfigFrom_Disabled(t *testing.T) {
	cfg := LoadConfigFrom(func(k string) string {
		if k == "RATE_LIMIT_ENABLED" {
			return "false"
		}
		return ""
	})
	assert.False(t, cfg.Enabled)
}
