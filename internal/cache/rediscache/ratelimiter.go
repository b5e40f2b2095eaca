package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Окно провайдера минутное, TTL с запасом на рассинхрон часов между инстансами.
const providerWindowTTL = 70 * time.Second

type RateLimiter struct {
	c *redis.Client
}

func NewRateLimiter(opts Options) *RateLimiter {
	return &RateLimiter{c: newClient(opts)}
}

// Allow делает INCR по ключу и ставит TTL на окно.
// Возвращает (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// AllowProvider считает вызовы провайдера в минутном окне, в которое попадает at.
func (rl *RateLimiter) AllowProvider(ctx context.Context, provider string, limit int64, at time.Time) (bool, int64, error) {
	ok, n, err := rl.Allow(ctx, ProviderKey(provider, at), limit, providerWindowTTL)
	if err != nil {
		return false, 0, errors.Wrapf(err, "provider %s", provider)
	}
	return ok, n, nil
}

// ProviderKey is rl:provider:<name>:<yyyymmddhhmm> in UTC.
func ProviderKey(provider string, at time.Time) string {
	return fmt.Sprintf("rl:provider:%s:%s", provider, at.UTC().Format("200601021504"))
}

func (rl *RateLimiter) Close() error {
	return rl.c.Close()
}
