package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/i2y/legacybridge/internal/domain"
)

//go:embed proxy_config.schema.json
var proxyConfigSchema []byte

const proxyConfigSchemaURL = "proxy_config.schema.json"

// ProxyStatus summarizes the active configuration.
type ProxyStatus struct {
	Configured    bool           `json:"configured"`
	APIType       domain.APIType `json:"apiType,omitempty"`
	BaseURL       string         `json:"baseUrl,omitempty"`
	ResourceCount int            `json:"resourceCount"`
}

// ConfigureProxyUseCase validates and stores the proxy configuration.
type ConfigureProxyUseCase struct {
	store  ConfigStore
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewConfigureProxyUseCase creates a new ConfigureProxyUseCase.
func NewConfigureProxyUseCase(store ConfigStore, logger *slog.Logger) (*ConfigureProxyUseCase, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(proxyConfigSchemaURL, bytes.NewReader(proxyConfigSchema)); err != nil {
		return nil, fmt.Errorf("failed to load proxy config schema: %w", err)
	}
	schema, err := compiler.Compile(proxyConfigSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile proxy config schema: %w", err)
	}
	return &ConfigureProxyUseCase{
		store:  store,
		schema: schema,
		logger: logger.With("usecase", "ConfigureProxy"),
	}, nil
}

// Configure validates the JSON document raw and makes it the active
// configuration. Validation failures match ErrInvalidInput.
func (uc *ConfigureProxyUseCase) Configure(ctx context.Context, raw []byte) (*domain.ProxyConfig, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, InvalidInput("Invalid configuration: %v", err)
	}
	if err := uc.schema.Validate(doc); err != nil {
		return nil, InvalidInput("Invalid configuration: %s", describeSchemaError(err))
	}

	var cfg domain.ProxyConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, InvalidInput("Invalid configuration: %v", err)
	}
	if err := uc.Apply(ctx, &cfg); err != nil {
		return nil, err
	}
	return cfg.Sanitized(), nil
}

// Apply stores an already decoded configuration after checking it.
func (uc *ConfigureProxyUseCase) Apply(ctx context.Context, cfg *domain.ProxyConfig) error {
	if err := cfg.Validate(); err != nil {
		return InvalidInput("Invalid configuration: %v", err)
	}
	if err := uc.store.Set(ctx, cfg); err != nil {
		uc.logger.Error("Failed to store proxy configuration", slog.Any("error", err))
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	uc.logger.Info("Proxy configured",
		slog.String("base_url", cfg.BaseURL),
		slog.String("api_type", string(cfg.APIType)),
		slog.String("auth_mode", string(cfg.Auth.EffectiveMode())),
		slog.Int("resources", len(cfg.Resources)))
	return nil
}

// Current returns the active configuration with secrets masked.
func (uc *ConfigureProxyUseCase) Current(ctx context.Context) (*domain.ProxyConfig, error) {
	cfg, err := uc.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg == nil {
		return nil, ErrConfigNotSet
	}
	return cfg.Sanitized(), nil
}

// Status reports whether a configuration is active.
func (uc *ConfigureProxyUseCase) Status(ctx context.Context) (ProxyStatus, error) {
	cfg, err := uc.store.Get(ctx)
	if err != nil {
		return ProxyStatus{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg == nil {
		return ProxyStatus{}, nil
	}
	return ProxyStatus{
		Configured:    true,
		APIType:       cfg.APIType,
		BaseURL:       cfg.BaseURL,
		ResourceCount: len(cfg.Resources),
	}, nil
}

// Clear removes the active configuration.
func (uc *ConfigureProxyUseCase) Clear(ctx context.Context) error {
	if err := uc.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear configuration: %w", err)
	}
	uc.logger.Info("Proxy configuration cleared")
	return nil
}

// describeSchemaError flattens a validation error tree into its leaf messages.
func describeSchemaError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
