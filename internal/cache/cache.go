package cache

import (
	"context"
	"time"
)

// BytesCache is a best-effort key/value store. A miss is (nil, false, nil).
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ProviderLimiter counts flight data provider calls per minute window.
type ProviderLimiter interface {
	AllowProvider(ctx context.Context, provider string, limit int64, at time.Time) (bool, int64, error)
}
