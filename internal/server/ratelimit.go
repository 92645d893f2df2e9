package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"careerkit/internal/errors"

	"golang.org/x/time/rate"
)

const defaultEvictionWindow = 10 * time.Minute

// client is one rate-limited caller.
type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter keeps a token bucket per caller key ("api:<key>" or
// "ip:<addr>") and forgets callers idle for longer than the eviction window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	window  time.Duration
	stop    chan struct{}
	once    sync.Once
	logger  *errors.Logger
}

// NewRateLimiter allows requestsPerMin per caller with bursts of up to
// burst. Callers idle longer than window are evicted; zero means ten
// minutes. Close stops the eviction goroutine.
func NewRateLimiter(requestsPerMin int, window time.Duration, burst int, logger *errors.Logger) *RateLimiter {
	if window <= 0 {
		window = defaultEvictionWindow
	}

	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(requestsPerMin) / 60),
		burst:   burst,
		window:  window,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictLoop()
	return rl
}

// Allow takes a token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.seen = time.Now()
	rl.mu.Unlock()

	return c.limiter.Allow()
}

// retryAfter is the whole number of seconds until one token refills.
func (rl *RateLimiter) retryAfter() int {
	if rl.limit <= 0 {
		return int(rl.window.Seconds())
	}
	return int(math.Ceil(1 / float64(rl.limit)))
}

// GetStats reports the limiter settings and how many callers are tracked.
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.clients),
		"rate_per_second": float64(rl.limit),
		"rate_per_minute": float64(rl.limit) * 60,
		"burst_capacity":  rl.burst,
		"eviction_window": rl.window.String(),
	}
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.window)
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops callers not seen within maxIdle.
func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	rl.mu.Lock()
	evicted := 0
	for key, c := range rl.clients {
		if c.seen.Before(cutoff) {
			delete(rl.clients, key)
			evicted++
		}
	}
	remaining := len(rl.clients)
	rl.mu.Unlock()

	if rl.logger != nil && evicted > 0 {
		rl.logger.Debug("Evicted idle rate limiters", "evicted", evicted, "remaining", remaining)
	}
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// rateLimitMiddleware answers 429 with a Retry-After header once a caller
// runs out of tokens.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			limitBy, _, _ := strings.Cut(key, ":")
			s.Observability.RecordRateLimitHit(r.Context(), limitBy)
			s.Logger.Info("Rate limit exceeded",
				"limit_by", limitBy,
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))

			w.Header().Set("Retry-After", strconv.Itoa(s.RateLimiter.retryAfter()))
			writeJSON(w, http.StatusTooManyRequests, errorBody("Rate limit exceeded", "RATE_LIMITED", ""))
		}
	}
}

// getRateLimitKey keys on the caller's API key when byAPIKey is set and one
// was sent, else on the client IP when byIP is set. "" means unlimited.
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if key := requestAPIKey(r); key != "" {
			return "api:" + key
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP prefers the first parseable X-Forwarded-For entry, then
// X-Real-IP, then the connection's remote address.
func getClientIP(r *http.Request) string {
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		candidate = strings.TrimSpace(candidate)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); net.ParseIP(realIP) != nil {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
