package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i2y/legacybridge/internal/domain"
)

// ConfigStore provides an in-memory implementation of usecase.ConfigStore.
// NOTE: This implementation is not persistent and the configuration is lost on restart.
type ConfigStore struct {
	mu     sync.RWMutex
	config *domain.ProxyConfig
	logger *slog.Logger
}

// New creates an empty in-memory store.
func New(logger *slog.Logger) *ConfigStore {
	return &ConfigStore{logger: logger.With("component", "mem_store")}
}

// Get returns a copy of the active configuration, or nil when none is set.
func (s *ConfigStore) Get(ctx context.Context) (*domain.ProxyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone(), nil
}

// Set replaces the active configuration with a copy of cfg.
func (s *ConfigStore) Set(ctx context.Context, cfg *domain.ProxyConfig) error {
	if cfg == nil {
		return fmt.Errorf("set failed: configuration is nil")
	}
	snapshot := cfg.Clone()

	s.mu.Lock()
	s.config = snapshot
	s.mu.Unlock()

	s.logger.Info("Stored proxy configuration",
		slog.String("base_url", snapshot.BaseURL),
		slog.String("api_type", string(snapshot.APIType)),
		slog.Int("resources", len(snapshot.Resources)))
	return nil
}

// Clear removes the active configuration.
func (s *ConfigStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.config = nil
	s.mu.Unlock()
	s.logger.Info("Cleared proxy configuration")
	return nil
}
