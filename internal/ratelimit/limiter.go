// Package ratelimit enforces per-client token-bucket limits on the
// authentication endpoints.
package ratelimit

import (
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config sizes the token buckets and the per-key cache.
type Config struct {
	// Capacity is the bucket size (maximum burst).
	Capacity int

	// RefillPerMinute is how many tokens return per minute.
	RefillPerMinute float64

	// IdleTTL is how long an untouched bucket is kept before eviction.
	IdleTTL time.Duration

	// MaxKeys bounds the cache; the least recently used bucket is
	// evicted when a new key would exceed it.
	MaxKeys int
}

// DefaultConfig matches the production limits on the auth endpoints.
func DefaultConfig() Config {
	return Config{
		Capacity:        5,
		RefillPerMinute: 5,
		IdleTTL:         10 * time.Minute,
		MaxKeys:         100_000,
	}
}

// DefaultAPIConfig matches the broader per-client limit on the rest of
// the API surface.
func DefaultAPIConfig() Config {
	return Config{
		Capacity:        120,
		RefillPerMinute: 120,
		IdleTTL:         10 * time.Minute,
		MaxKeys:         100_000,
	}
}

// LoadConfigFromEnv reads overrides for the auth-endpoint limiter.
//
// Optional:
//   - HUDDLE_RATE_CAPACITY
//   - HUDDLE_RATE_REFILL_PER_MIN
//   - HUDDLE_RATE_IDLE_TTL (Go duration)
//   - HUDDLE_RATE_MAX_KEYS
func LoadConfigFromEnv() Config {
	return fromEnv("HUDDLE_RATE_", DefaultConfig())
}

// LoadAPIConfigFromEnv reads overrides for the general API limiter
// (HUDDLE_API_RATE_* keys, same suffixes as above).
func LoadAPIConfigFromEnv() Config {
	return fromEnv("HUDDLE_API_RATE_", DefaultAPIConfig())
}

func fromEnv(prefix string, cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv(prefix + "CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Capacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(prefix + "REFILL_PER_MIN")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RefillPerMinute = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(prefix + "IDLE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.IdleTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv(prefix + "MAX_KEYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxKeys = n
		}
	}
	return cfg
}

// Decision is the outcome of one consumption attempt.
type Decision struct {
	Allowed bool

	// Remaining is the whole tokens left after a successful attempt.
	Remaining int

	// RetryAfter is how long until one token is available, rounded up
	// to whole seconds and never below one second. Set on rejection.
	RetryAfter time.Duration
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter maintains one token bucket per key. All time flows through
// the explicit now argument, so tests drive the clock directly.
type Limiter struct {
	cfg Config

	mu        sync.Mutex
	entries   map[string]*entry
	nextSweep time.Time
}

// NewLimiter creates an empty limiter cache.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// TryConsume takes one token from key's bucket.
func (l *Limiter) TryConsume(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	e, ok := l.entries[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(rate.Limit(l.cfg.RefillPerMinute/60), l.cfg.Capacity)}
		if len(l.entries) >= l.cfg.MaxKeys {
			l.evictOldestLocked()
		}
		l.entries[key] = e
	}
	e.lastSeen = now

	if e.lim.AllowN(now, 1) {
		remaining := int(e.lim.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		return Decision{Allowed: true, Remaining: remaining}
	}

	r := e.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)

	retry := time.Duration(math.Ceil(wait.Seconds())) * time.Second
	if retry < time.Second {
		retry = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retry}
}

// Len reports the number of cached buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) sweepLocked(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(l.cfg.IdleTTL)

	cut := now.Add(-l.cfg.IdleTTL)
	for k, e := range l.entries {
		if e.lastSeen.Before(cut) {
			delete(l.entries, k)
		}
	}
}

func (l *Limiter) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range l.entries {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey = k
			oldest = e.lastSeen
		}
	}
	if oldestKey != "" {
		delete(l.entries, oldestKey)
	}
}
