package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"consigna/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string // also the metrics label
}

// windowHit counts one request against key and returns the running count
// and the time left in the window. Keys left without an expiry get one.
func windowHit(ctx context.Context, client redis.Cmdable, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		left = window
	}
	return incr.Val(), left, nil
}

// clientKey is the session id when authenticated, otherwise the remote host
// (already rewritten from X-Forwarded-For by chi's RealIP)
func clientKey(r *http.Request) string {
	if sess, ok := GetSession(r.Context()); ok {
		return "sess:" + sess.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimitMiddleware implements fixed-window rate limiting on redis.
// Requests pass through when redis is unreachable.
func RateLimitMiddleware(client redis.Cmdable, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientKey(r)
			key := config.KeyPrefix + ":" + id

			count, left, err := windowHit(r.Context(), client, key, config.Window)
			if err != nil {
				logger.Error("Rate limit check failed", zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			remaining := config.RequestsPerWindow - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(left).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				metrics.RateLimitedTotal.WithLabelValues(config.KeyPrefix).Inc()
				logger.Warn("Rate limit exceeded",
					zap.String("client", id),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				retry := int(left.Round(time.Second).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
