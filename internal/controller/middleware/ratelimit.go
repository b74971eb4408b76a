package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client address.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	key   func(*http.Request) string
	now   func() time.Time

	limiters  sync.Map // client -> *cachedLimiter
	lastSweep atomic.Int64
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithTTL sets how long an idle client's limiter is kept.
func WithTTL(ttl time.Duration) RateLimitOption {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// WithKeyFunc sets how a request is mapped to a client.
func WithKeyFunc(fn func(*http.Request) string) RateLimitOption {
	return func(rl *RateLimiter) { rl.key = fn }
}

// WithTrustForwarded keys clients on the first X-Forwarded-For hop. Only
// enable it behind a proxy that overwrites the header.
func WithTrustForwarded() RateLimitOption {
	return WithKeyFunc(ForwardedAddr)
}

// NewRateLimiter allows perSecond requests with the given burst to every
// client. perSecond <= 0 means unlimited.
func NewRateLimiter(perSecond float64, burst int, opts ...RateLimitOption) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		ttl:   5 * time.Minute,
		key:   ClientAddr,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl.limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.limiterFor(rl.key(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt atomic.Int64 // unix nanos
}

func (c *cachedLimiter) expired(now time.Time) bool {
	return now.UnixNano() >= c.expiresAt.Load()
}

func (rl *RateLimiter) limiterFor(client string) *rate.Limiter {
	now := rl.now()
	rl.sweep(now)

	deadline := now.Add(rl.ttl).UnixNano()
	if v, ok := rl.limiters.Load(client); ok {
		cached := v.(*cachedLimiter)
		if !cached.expired(now) {
			cached.expiresAt.Store(deadline)
			return cached.limiter
		}
		rl.limiters.CompareAndDelete(client, cached)
	}

	fresh := &cachedLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	fresh.expiresAt.Store(deadline)
	actual, _ := rl.limiters.LoadOrStore(client, fresh)
	return actual.(*cachedLimiter).limiter
}

// sweep drops expired limiters at most once per ttl.
func (rl *RateLimiter) sweep(now time.Time) {
	last := rl.lastSweep.Load()
	if now.UnixNano()-last < int64(rl.ttl) {
		return
	}
	if !rl.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	rl.limiters.Range(func(k, v any) bool {
		if v.(*cachedLimiter).expired(now) {
			rl.limiters.CompareAndDelete(k, v)
		}
		return true
	})
}

// ClientAddr identifies a client by the host part of its remote address.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedAddr identifies a client by the first X-Forwarded-For hop,
// falling back to ClientAddr.
func ForwardedAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return ClientAddr(r)
}
