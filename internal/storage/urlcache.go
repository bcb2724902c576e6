package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// ObjectURLer returns a readable URL for a stored object.
type ObjectURLer interface {
	ObjectURL(ctx context.Context, key string) (string, error)
}

// ImageURLCache hands out image URLs by object key. Presigned links are
// regenerated once ttl has passed, so ttl must stay below the presign expiry.
type ImageURLCache struct {
	cache *cache.LoadableCache[string]
}

func NewImageURLCache(objects ObjectURLer, ttl time.Duration) (*ImageURLCache, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create image url cache: %w", err)
	}

	load := func(ctx context.Context, key any) (string, []store.Option, error) {
		objectKey, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("image url cache: expected string key, got %T", key)
		}
		u, err := objects.ObjectURL(ctx, objectKey)
		opts := []store.Option{store.WithCost(1)}
		if ttl > 0 {
			opts = append(opts, store.WithExpiration(ttl))
		}
		return u, opts, err
	}

	return &ImageURLCache{
		cache: cache.NewLoadable[string](load, cache.New[string](ristretto_store.NewRistretto(ristrettoCache))),
	}, nil
}

// ImageURL returns a currently valid URL for key.
func (c *ImageURLCache) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return c.cache.Get(ctx, key)
}
