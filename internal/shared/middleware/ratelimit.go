package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"brokerlink/internal/shared/auth"
	"brokerlink/internal/shared/logger"
)

// RateLimiter keeps one token bucket per caller. Buckets idle for longer than
// the TTL are evicted.
type RateLimiter struct {
	limiters *ttlcache.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per caller with a burst of the same size.
func NewRateLimiter(perMinute int, idleTTL time.Duration) *RateLimiter {
	cache := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](idleTTL),
	)
	go cache.Start()

	return &RateLimiter{
		limiters: cache,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Stop ends the eviction loop.
func (rl *RateLimiter) Stop() {
	rl.limiters.Stop()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if item := rl.limiters.Get(key); item != nil {
		return item.Value()
	}
	item, _ := rl.limiters.GetOrSet(key, rate.NewLimiter(rl.limit, rl.burst))
	return item.Value()
}

// Limit rejects callers that exhausted their bucket with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		lim := rl.limiter(key)

		if !lim.Allow() {
			retryAfter := int(time.Duration(float64(time.Second) / float64(rl.limit)).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.Ctx(r.Context()).Warn().Str("caller", key).Msg("rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return "user:" + p.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
