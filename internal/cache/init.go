package cache

import (
	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/logger"
	redisClient "github.com/flexprice/tenantcore/internal/redis"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	CacheTypeInMemory CacheType = "inmemory"
	CacheTypeRedis    CacheType = "redis"
)

// Initialize picks the cache backend from configuration. A redis cache
// without a client degrades to the in-memory cache.
func Initialize(cfg *config.Configuration, log *logger.Logger, client *redisClient.Client) Cache {
	log.Infow("initializing cache", "type", cfg.Cache.Type, "enabled", cfg.Cache.Enabled)

	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		if client != nil {
			return NewRedisCache(client, log, cfg)
		}
		log.Warnw("redis cache requested without a redis client, using in-memory cache")
		fallthrough
	default:
		return NewInMemoryCache()
	}
}
