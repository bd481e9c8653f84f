// Package cache stores prediction responses for repeated uploads.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dengue-platform/internal/models"
)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisCache keeps prediction responses keyed by model and upload content
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to Redis and verifies it answers
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCache(client, cfg), nil
}

func newRedisCache(client *redis.Client, cfg Config) *RedisCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "predictions"
	}
	return &RedisCache{client: client, ttl: cfg.TTL, prefix: prefix}
}

// Key derives the cache key of an upload. The model version is part of the key so
// reloading a model never serves stale results.
func Key(modelType, modelVersion string, upload []byte) string {
	h := sha256.New()
	h.Write([]byte(modelType))
	h.Write([]byte{'|'})
	h.Write([]byte(modelVersion))
	h.Write([]byte{'|'})
	h.Write(upload)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *RedisCache) redisKey(key string) string {
	return c.prefix + ":" + key
}

// Get returns the cached response for key. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]models.PredictionResult, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	results, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

// Set stores a response under key for the configured TTL
func (c *RedisCache) Set(ctx context.Context, key string, results []models.PredictionResult) error {
	data, err := encode(results)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encode(results []models.PredictionResult) ([]byte, error) {
	if results == nil {
		results = []models.PredictionResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cached response: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]models.PredictionResult, error) {
	var results []models.PredictionResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return results, nil
}
