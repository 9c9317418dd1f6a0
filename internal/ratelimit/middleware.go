package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/common"
)

// Middleware limits requests per client IP. Limiter failures fail open so a
// Redis outage never takes the API down with it.
func Middleware(limiter *SlidingRedis, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := "ip:" + common.ClientIP(r)
			allowed, remaining, reset, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Msg("rate limiter unavailable, failing open")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
			if !allowed {
				retryAfter := int(time.Until(reset).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				common.JSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
