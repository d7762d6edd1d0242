package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// DefaultModeKeyPrefix namespaces operation-mode keys
const DefaultModeKeyPrefix = "dian:opmode:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisModeCache shares operation modes across instances. Values are JSON
// and include the credential password, so the Redis instance must be private.
type RedisModeCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisModeCache connects to Redis and verifies the connection
func NewRedisModeCache(cfg RedisConfig) (*RedisModeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisModeCacheWithClient(client, ""), nil
}

// NewRedisModeCacheWithClient wraps an existing client
func NewRedisModeCacheWithClient(client *redis.Client, keyPrefix string) *RedisModeCache {
	if keyPrefix == "" {
		keyPrefix = DefaultModeKeyPrefix
	}
	return &RedisModeCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get reads and decodes a cached mode
func (c *RedisModeCache) Get(ctx context.Context, key string) (*document.OperationMode, bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read operation mode: %w", err)
	}

	var mode document.OperationMode
	if err := json.Unmarshal(data, &mode); err != nil {
		return nil, false, fmt.Errorf("failed to decode operation mode: %w", err)
	}
	return &mode, true, nil
}

// Set stores mode with ttl
func (c *RedisModeCache) Set(ctx context.Context, key string, mode *document.OperationMode, ttl time.Duration) error {
	data, err := json.Marshal(mode)
	if err != nil {
		return fmt.Errorf("failed to encode operation mode: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write operation mode: %w", err)
	}
	return nil
}

// Delete removes key
func (c *RedisModeCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// Close closes the Redis client
func (c *RedisModeCache) Close() error {
	return c.client.Close()
}
