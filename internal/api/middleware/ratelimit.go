package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/metrics"
)

// RateLimiter implements fixed-window rate limiting keyed by requesting
// origin. With a Redis client the window counters live in Redis (shared
// across replicas); without one they live in a process-local map and are
// lost on restart, which is fine for a single-coordinator deployment.
// Excess requests are rejected, never queued.
type RateLimiter struct {
	requests     int
	window       time.Duration
	client       *redis.Client
	logger       zerolog.Logger
	whitelist    []*net.IPNet
	whitelistIPs map[string]bool

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a rate limiter allowing requests per window for each
// origin. client may be nil for the in-memory backend.
func NewRateLimiter(requests int, window time.Duration, client *redis.Client, logger zerolog.Logger, whitelist []string) *RateLimiter {
	rl := &RateLimiter{
		requests:     requests,
		window:       window,
		client:       client,
		logger:       logger,
		whitelistIPs: make(map[string]bool),
		buckets:      make(map[string]*bucket),
	}

	// Parse whitelist entries (IPs or CIDRs)
	for _, entry := range whitelist {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
				continue
			}
			rl.whitelist = append(rl.whitelist, ipNet)
		} else {
			rl.whitelistIPs[entry] = true
		}
	}

	return rl
}

// isWhitelisted checks if an IP is in the whitelist.
func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.whitelistIPs[ipStr] {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Allow counts one request against the key's current window.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	if rl.client != nil {
		return rl.allowRedis(ctx, key)
	}
	return rl.allowMemory(key)
}

// allowRedis implements the window with INCR + EXPIRE on a time-bucketed key.
func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, int, time.Time) {
	now := time.Now()
	windowSecs := int64(rl.window.Seconds())
	slot := now.Unix() / windowSecs
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, slot)

	count, err := rl.client.Incr(ctx, windowKey).Result()
	if err != nil {
		// Redis being down should not take the endpoint down with it.
		rl.logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
		return true, rl.requests, now.Add(rl.window)
	}
	if count == 1 {
		rl.client.Expire(ctx, windowKey, rl.window)
	}

	resetAt := time.Unix((slot+1)*windowSecs, 0)
	remaining := rl.requests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(rl.requests), remaining, resetAt
}

// allowMemory implements the window with a process-local counter map.
func (rl *RateLimiter) allowMemory(key string) (bool, int, time.Time) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(rl.window)}
		rl.buckets[key] = b

		// Opportunistic pruning keeps the map from growing unbounded.
		if len(rl.buckets) > 4096 {
			for k, old := range rl.buckets {
				if now.After(old.resetAt) {
					delete(rl.buckets, k)
				}
			}
		}
	}

	b.count++
	remaining := rl.requests - b.count
	if remaining < 0 {
		remaining = 0
	}
	return b.count <= rl.requests, remaining, b.resetAt
}

// Middleware returns the rate limiting middleware, keyed by origin IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)

		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt := rl.Allow(r.Context(), ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())))

			metrics.RateLimitHits.WithLabelValues(r.URL.Path).Inc()
			rl.logger.Warn().
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
