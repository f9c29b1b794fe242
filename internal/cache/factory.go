package cache

import (
	"context"
	"fmt"

	"github.com/pep299/article-feed-api/internal/config"
)

// NewFromConfig builds the Manager selected by CACHE_TYPE.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Manager, error) {
	switch cfg.CacheType {
	case "none":
		return NewManager(nil), nil
	case "memory":
		return NewManager(NewMemoryCache(cfg.CacheTTL())), nil
	case "redis":
		rc, err := NewRedisCache(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			return nil, err
		}
		return NewManager(rc), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
