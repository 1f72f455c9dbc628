package middleware

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devlinkhq/devlink-backend/pkg/clientip"
)

const (
	// AuthRateLimitWindow and AuthRateLimitMax bound login/signup
	// attempts per IP to slow brute forcing.
	AuthRateLimitWindow = 15 * time.Minute
	AuthRateLimitMax    = 20
	authRateLimitPrefix = "ratelimit:auth:"
)

// AuthRateLimit is a fixed-window per-IP rate limiter backed by Redis,
// intended for the auth routes only. It fails open when Redis is
// unreachable so an infra hiccup doesn't lock everyone out.
func AuthRateLimit(client *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := authRateLimitPrefix + clientip.RealClientIP(r)
			ctx := r.Context()

			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(ctx, key, AuthRateLimitWindow)
			}

			if count > AuthRateLimitMax {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"message":"Too many requests from this IP, please try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
