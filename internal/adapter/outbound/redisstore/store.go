// Package redisstore shares the proxy configuration between gateway
// replicas through Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/i2y/legacybridge/internal/domain"
)

// DefaultKey is the Redis key holding the JSON-encoded configuration.
const DefaultKey = "legacybridge:proxy_config"

// ConfigStore implements usecase.ConfigStore on a single Redis key. SET and
// GET are atomic, so readers always decode a complete document.
type ConfigStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// New connects to Redis. The connection is lazy; use Ping to verify it.
func New(addr, password string, db int, key string, logger *slog.Logger) *ConfigStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(rdb, key, logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, key string, logger *slog.Logger) *ConfigStore {
	if key == "" {
		key = DefaultKey
	}
	return &ConfigStore{
		client: client,
		key:    key,
		logger: logger.With("component", "redis_store", "key", key),
	}
}

// Ping checks connectivity.
func (s *ConfigStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get returns the stored configuration, or nil when the key is absent.
func (s *ConfigStore) Get(ctx context.Context) (*domain.ProxyConfig, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy config from redis: %w", err)
	}
	var cfg domain.ProxyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode proxy config from redis: %w", err)
	}
	return &cfg, nil
}

// Set stores cfg without expiry.
func (s *ConfigStore) Set(ctx context.Context, cfg *domain.ProxyConfig) error {
	if cfg == nil {
		return fmt.Errorf("set failed: configuration is nil")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode proxy config: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write proxy config to redis: %w", err)
	}
	s.logger.Info("Stored proxy configuration", slog.Int("resources", len(cfg.Resources)))
	return nil
}

// Clear deletes the key.
func (s *ConfigStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear proxy config in redis: %w", err)
	}
	s.logger.Info("Cleared proxy configuration")
	return nil
}

// Close releases the client.
func (s *ConfigStore) Close() error {
	return s.client.Close()
}
