package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"consigna/internal/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// Feature: sign-in throttling, Property 1: requests beyond the window limit get 429
func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("excessive requests are blocked with 429", prop.ForAll(
		func(requestsPerWindow int, excessRequests int) bool {
			_, client := newTestRedis(t)

			handler := RateLimitMiddleware(client, RateLimitConfig{
				RequestsPerWindow: requestsPerWindow,
				Window:            time.Minute,
				KeyPrefix:         "signin",
			}, zap.NewNop())(okHandler())

			successCount, blockedCount := 0, 0
			for i := 0; i < requestsPerWindow+excessRequests; i++ {
				req := httptest.NewRequest("POST", "/api/auth/sign-in", nil)
				req.RemoteAddr = "192.168.1.100"
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				switch w.Code {
				case http.StatusOK:
					successCount++
				case http.StatusTooManyRequests:
					blockedCount++
				}
			}

			return successCount == requestsPerWindow && blockedCount == excessRequests
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitWindowResets(t *testing.T) {
	mr, client := newTestRedis(t)
	handler := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            30 * time.Second,
		KeyPrefix:         "signin",
	}, zap.NewNop())(okHandler())

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/sign-in", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	first := do("10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	blocked := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// other clients keep their own window
	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)

	mr.FastForward(31 * time.Second)
	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	w := httptest.NewRecorder()
	RateLimitMiddleware(client, RateLimitConfig{RequestsPerWindow: 1, Window: time.Second, KeyPrefix: "x"}, zap.NewNop())(okHandler()).
		ServeHTTP(w, httptest.NewRequest("POST", "/api/auth/sign-in", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitKeysByHostAndCountsRejections(t *testing.T) {
	_, client := newTestRedis(t)
	handler := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "signup-test",
	}, zap.NewNop())(okHandler())

	before := testutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues("signup-test"))

	for i, port := range []string{"40001", "40002"} {
		req := httptest.NewRequest("POST", "/api/auth/sign-up", nil)
		req.RemoteAddr = "10.0.0.9:" + port
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		want := http.StatusOK
		if i > 0 {
			// same host from a new port shares the window
			want = http.StatusTooManyRequests
		}
		assert.Equal(t, want, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues("signup-test")))
}
