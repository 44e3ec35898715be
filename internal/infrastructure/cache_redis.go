package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix      = "mediafetch:info:"
	redisConnectTimeout = 5 * time.Second
)

// RedisCache stores resolved metadata as JSON values with a TTL
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient connects and pings the server
func NewRedisClient(cfg *domain.CacheConfig) (*redis.Client, error) {
	if cfg.RedisAddress == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get returns the cached metadata; lookup errors count as a miss
func (c *RedisCache) Get(ctx context.Context, url string) (*domain.MediaInfo, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+url).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Metadata cache lookup failed", zap.String("url", url), zap.Error(err))
		}
		return nil, false
	}

	var info domain.MediaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		c.logger.Warn("Discarding unreadable cache entry", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	return &info, true
}

// Set stores info for ttl
func (c *RedisCache) Set(ctx context.Context, url string, info *domain.MediaInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+url, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
