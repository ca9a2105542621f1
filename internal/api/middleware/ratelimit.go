package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// clientLimit is the token bucket of one client
type clientLimit struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// RateLimiter is a per-client token bucket in front of the routes that call the
// cloud APIs. Clients are identified by remote IP; idle buckets expire.
type RateLimiter struct {
	limits     *cache.Cache
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64 // tokens per second
	now        func() time.Time
	logger     *zap.Logger
}

// NewRateLimiter returns nil when the limit is disabled
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		limits:     cache.New(cfg.IdleTTL, cfg.IdleTTL),
		maxTokens:  float64(burst),
		refillRate: float64(cfg.RequestsPerMinute) / 60.0,
		now:        time.Now,
		logger:     logger,
	}
}

// Handler rejects requests over the limit with 429. A nil limiter lets everything through.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		wait, ok := rl.allow(key)
		if !ok {
			ctxzap.Warn(r.Context(), "rate limit exceeded", zap.String("client", key), zap.Duration("retry_after", wait))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			response.Error(w, http.StatusTooManyRequests, fmt.Sprintf("too many requests, retry in %s", wait.Round(time.Second)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow takes a token from the client's bucket, or reports how long until one is available
func (rl *RateLimiter) allow(key string) (time.Duration, bool) {
	now := rl.now()

	rl.mu.Lock()
	limit, found := rl.limits.Get(key)
	if !found {
		limit = &clientLimit{tokens: rl.maxTokens, lastRefill: now}
	}
	// Touch on every request so only idle clients expire
	rl.limits.SetDefault(key, limit)
	rl.mu.Unlock()

	cl := limit.(*clientLimit)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.tokens = math.Min(rl.maxTokens, cl.tokens+now.Sub(cl.lastRefill).Seconds()*rl.refillRate)
	cl.lastRefill = now

	if cl.tokens >= 1 {
		cl.tokens--
		return 0, true
	}

	missing := 1 - cl.tokens
	return time.Duration(missing / rl.refillRate * float64(time.Second)), false
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
