package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled limiter admits everything", func(t *testing.T) {
		rl := NewRateLimiter(nil, false, FailOpen)
		for i := 0; i < 5; i++ {
			allowed, err := rl.Allow(ctx, "r", "1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("nil redis reports an error", func(t *testing.T) {
		rl := NewRateLimiter(nil, true, FailOpen)
		_, err := rl.Allow(ctx, "r", "1", 1, time.Minute)
		assert.Error(t, err)
	})

	t.Run("counts within window", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		rl := NewRateLimiter(rdb, true, FailOpen)

		for i := 0; i < 2; i++ {
			allowed, err := rl.Allow(ctx, "follow", "user:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := rl.Allow(ctx, "follow", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		other, err := rl.Allow(ctx, "follow", "user:2", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, other)

		mr.FastForward(2 * time.Minute)
		allowed, err = rl.Allow(ctx, "follow", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiter_Limit(t *testing.T) {
	_, rdb := newTestRedis(t)
	rl := NewRateLimiter(rdb, true, FailOpen)

	app := fiber.New()
	app.Post("/react", rl.Limit(1, time.Minute, "react"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	first, err := app.Test(httptest.NewRequest(http.MethodPost, "/react", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, first.StatusCode)

	second, err := app.Test(httptest.NewRequest(http.MethodPost, "/react", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestRateLimiter_FailPolicy(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		name   string
		policy FailPolicy
		want   int
	}{
		{"fail open passes through", FailOpen, http.StatusNoContent},
		{"fail closed rejects", FailClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(rdb, true, tt.policy)
			app := fiber.New()
			app.Post("/x", rl.Limit(5, time.Minute, "x"), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusNoContent)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/x", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
