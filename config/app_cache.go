package config

import (
	"context"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
	pkgredis "github.com/akeren/waitlister-api/pkg/redis"
	"github.com/akeren/waitlister-api/pkg/utils"
)

// Cache backs the count cache and the Redis rate limiter.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type CacheConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		Host:        envString("REDIS_HOST", ""),
		Port:        envString("REDIS_PORT", "6379"),
		Password:    envString("REDIS_PASSWORD", ""),
		DB:          utils.GetEnvPositiveInt("REDIS_DB", 0),
		DialTimeout: utils.GetEnvPositiveDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
	}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

// NewCacheOrNil connects to Redis when REDIS_HOST is set. Any failure leaves
// the service without a cache: counts are read from the store and rate limits
// are kept in memory.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Redis not configured; count cache and shared rate limits disabled")
		return nil
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		Host:        cc.Host,
		Port:        cc.Port,
		Password:    cc.Password,
		DB:          cc.DB,
		DialTimeout: cc.DialTimeout,
	})
	if err != nil {
		logger.Error("Redis unavailable; continuing without cache", "host", cc.Host, "port", cc.Port, "error", err)
		return nil
	}

	logger.Info("Redis connected", "host", cc.Host, "port", cc.Port, "db", cc.DB)
	return cache
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close Redis", "error", err)
		return err
	}

	logger.Info("Redis connection closed")
	return nil
}
