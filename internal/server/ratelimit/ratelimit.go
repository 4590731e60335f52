// Package ratelimit provides per-client request limiting with token buckets.
package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// bucket is a token bucket refilled at a steady rate.
type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newBucket(capacity int, refillRate float64) *bucket {
	return &bucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

func (b *bucket) refillLocked(now time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
}

// take consumes one token if available, reporting the remaining count and
// when the bucket will next hold a token.
func (b *bucket) take() (allowed bool, remaining int, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refillLocked(now)

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	wait := time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
	return false, 0, wait
}

// Rule is a per-endpoint limit. Path matching is exact, or prefix when the
// path ends with "/".
type Rule struct {
	Method string
	Path   string
	Limit  int // requests per Window
	Window time.Duration
	Burst  int // bucket capacity, defaults to Limit
}

// Info describes the limiter's decision for one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces per-client, per-endpoint request limits.
type Limiter struct {
	enabled       bool
	rules         []Rule
	defaultLimit  int
	defaultWindow time.Duration

	mu         sync.Mutex
	buckets    map[string]*bucket
	lastAccess map[string]time.Time

	stop chan struct{}
	once sync.Once
}

// DefaultRules returns the endpoint limits for this API. Analysis runs hold
// a model connection for minutes, so they get the strictest tier.
func DefaultRules() []Rule {
	return []Rule{
		{Method: "POST", Path: "/challenges/", Limit: 10, Window: time.Hour, Burst: 3},
		{Method: "POST", Path: "/auth/register", Limit: 20, Window: time.Minute, Burst: 5},
		{Method: "POST", Path: "/auth/login", Limit: 20, Window: time.Minute, Burst: 5},
		{Method: "DELETE", Path: "/challenges/", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// NewLimiter creates a limiter. The RATE_LIMIT_ENABLED, RATE_LIMIT_DEFAULT_LIMIT
// and RATE_LIMIT_DEFAULT_WINDOW environment variables tune the defaults.
func NewLimiter(rules []Rule) *Limiter {
	l := &Limiter{
		enabled:       envBool("RATE_LIMIT_ENABLED", true),
		rules:         rules,
		defaultLimit:  envInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
		defaultWindow: envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		buckets:       make(map[string]*bucket),
		lastAccess:    make(map[string]time.Time),
		stop:          make(chan struct{}),
	}
	if l.enabled {
		go l.evictLoop()
	}
	return l
}

// Allow decides whether a request from clientID may proceed.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.enabled {
		return true, Info{Allowed: true}
	}
	// Health checks are never limited.
	if method == "GET" && path == "/health" {
		return true, Info{Allowed: true}
	}

	rule := l.match(path, method)
	key := clientID + ":" + rule.Method + ":" + rule.Path

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		capacity := rule.Burst
		if capacity <= 0 {
			capacity = rule.Limit
		}
		b = newBucket(capacity, float64(rule.Limit)/rule.Window.Seconds())
		l.buckets[key] = b
	}
	l.lastAccess[key] = time.Now()
	l.mu.Unlock()

	allowed, remaining, retryAfter := b.take()
	return allowed, Info{
		Allowed:    allowed,
		Limit:      rule.Limit,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
}

// match finds the applicable rule, falling back to the global default.
func (l *Limiter) match(path, method string) Rule {
	for _, r := range l.rules {
		if r.Method != method {
			continue
		}
		if r.Path == path {
			return r
		}
		if strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return Rule{Method: method, Path: path, Limit: l.defaultLimit, Window: l.defaultWindow}
}

// evictLoop drops buckets idle for over an hour so the map cannot grow
// without bound.
func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-time.Hour)
			l.mu.Lock()
			for key, last := range l.lastAccess {
				if last.Before(cutoff) {
					delete(l.buckets, key)
					delete(l.lastAccess, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop terminates the eviction goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
