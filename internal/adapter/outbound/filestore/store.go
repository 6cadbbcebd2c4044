// Package filestore persists the proxy configuration as a JSON file so it
// survives restarts.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/i2y/legacybridge/internal/domain"
)

// DefaultPath is the file used when none is configured.
const DefaultPath = ".proxy_config.json"

// ConfigStore keeps the active configuration in memory and mirrors every
// change to a JSON file. Writes go to a temporary file that is renamed into
// place, so the file never holds a partial document.
type ConfigStore struct {
	path   string
	mu     sync.RWMutex
	config *domain.ProxyConfig
	logger *slog.Logger
}

// New opens the store at path, loading an existing file if present.
func New(path string, logger *slog.Logger) (*ConfigStore, error) {
	if path == "" {
		path = DefaultPath
	}
	s := &ConfigStore{path: path, logger: logger.With("component", "file_store", "path", path)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("No stored proxy configuration")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read proxy config file %s: %w", path, err)
	}

	var cfg domain.ProxyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		// Start empty rather than fail on a corrupt file.
		s.logger.Warn("Ignoring unreadable proxy configuration file", slog.Any("error", err))
		return s, nil
	}
	s.config = &cfg
	s.logger.Info("Loaded proxy configuration", slog.Int("resources", len(cfg.Resources)))
	return s, nil
}

// Get returns a copy of the active configuration, or nil when none is set.
func (s *ConfigStore) Get(ctx context.Context) (*domain.ProxyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone(), nil
}

// Set writes cfg to disk and makes it active.
func (s *ConfigStore) Set(ctx context.Context, cfg *domain.ProxyConfig) error {
	if cfg == nil {
		return fmt.Errorf("set failed: configuration is nil")
	}
	snapshot := cfg.Clone()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode proxy config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(data); err != nil {
		return err
	}
	s.config = snapshot
	s.logger.Info("Stored proxy configuration", slog.Int("resources", len(snapshot.Resources)))
	return nil
}

// Clear removes the file and the active configuration.
func (s *ConfigStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove proxy config file %s: %w", s.path, err)
	}
	s.config = nil
	s.logger.Info("Cleared proxy configuration")
	return nil
}

func (s *ConfigStore) writeFile(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".proxy_config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write proxy config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write proxy config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace proxy config file: %w", err)
	}
	return nil
}
