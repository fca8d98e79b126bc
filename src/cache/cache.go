// Package cache provides a Redis read-through layer in front of the row providers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"scm-scheduler/src/logger"
	"scm-scheduler/src/models"

	"github.com/redis/go-redis/v9"
)

// Key prefix for cached provider rows: + provider name + ":" + date
const KeyProviderRows = "scm:cache:rows:"

// -----------------------------------------------------------------------------

// Cache provides Redis-backed caching with graceful fallback. The first Redis
// error disables it for the rest of the process.
type Cache struct {
	client *redis.Client
	logger *logger.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	disabled bool
}

// -----------------------------------------------------------------------------

// New connects to Redis. An unreachable server yields a disabled cache, not
// an error.
func New(cfg models.MCacheConfig, log *logger.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	c := &Cache{
		client: client,
		logger: log,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warning("Redis cache unavailable at %s, running without caching: %v", cfg.RedisAddr, err)
		client.Close()
		c.client = nil
		c.disabled = true
		return c
	}

	log.Info("Redis cache initialized (%s, ttl %v)", cfg.RedisAddr, c.ttl)
	return c
}

// -----------------------------------------------------------------------------

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// -----------------------------------------------------------------------------

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.mu.Lock()
	wasDisabled := c.disabled
	c.disabled = true
	c.mu.Unlock()

	if !wasDisabled {
		c.logger.Warning("Disabling cache after %s failed: %v", operation, err)
	}
}

// -----------------------------------------------------------------------------

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest interface{}) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.handleError(err, "get")
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug("Failed to unmarshal cached value %s: %v", key, err)
		return false
	}
	return true
}

// -----------------------------------------------------------------------------

// set stores a value in cache with the configured TTL.
func (c *Cache) set(ctx context.Context, key string, value interface{}) {
	if !c.IsAvailable() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("Failed to marshal cache value %s: %v", key, err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// -----------------------------------------------------------------------------

// InvalidateProvider removes every cached date of provider.
func (c *Cache) InvalidateProvider(ctx context.Context, provider string) error {
	if !c.IsAvailable() {
		return nil
	}

	pattern := fmt.Sprintf("%s%s:*", KeyProviderRows, provider)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.handleError(err, "delete")
			return err
		}
	}
	if err := iter.Err(); err != nil {
		c.handleError(err, "scan")
		return err
	}
	return nil
}
