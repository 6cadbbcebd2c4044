package configs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i2y/legacybridge/internal/adapter/outbound/github"
	"github.com/i2y/legacybridge/internal/domain"
)

const envPrefix = "legacybridge"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// StoreConfig selects and configures the proxy configuration store.
type StoreConfig struct {
	Kind          string `yaml:"kind"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	RedisKey      string `yaml:"redisKey"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	// Proxy seeds the store at startup when present.
	Proxy *domain.ProxyConfig `yaml:"proxy"`
	Store StoreConfig         `yaml:"store"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Fields are loaded from environment variables with
// the prefix "LEGACYBRIDGE_"; store settings from the environment take
// precedence over the file.
type Config struct {
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// From the file only.
	Proxy *domain.ProxyConfig `ignored:"true"`

	Store         string `envconfig:"STORE"`
	StorePath     string `envconfig:"STORE_PATH"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	RedisKey      string `envconfig:"REDIS_KEY"`

	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ForwardTimeout           time.Duration `envconfig:"FORWARD_TIMEOUT" default:"30s"`
	MaxAnalyzePayload        int           `envconfig:"MAX_ANALYZE_PAYLOAD" default:"10485760"`
	MaxResponseBytes         int64         `envconfig:"MAX_RESPONSE_BYTES" default:"20971520"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	ServerWriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ServerIdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat                string        `envconfig:"LOG_FORMAT" default:"text"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks the store selection.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.StorePath == "" {
			return fmt.Errorf("store %q needs a path", c.Store)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("store %q needs a redis address", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, file or redis)", c.Store)
	}
	if c.MaxAnalyzePayload <= 0 {
		return fmt.Errorf("max analyze payload must be positive")
	}
	return nil
}

// Load reads the environment, then the YAML file it names (a local path or
// a github:// URL), then fills store settings the environment left unset
// from the file and finally applies built-in defaults.
func Load(ctx context.Context, gh *github.Source) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	var fileCfg FileConfig
	if cfg.ConfigFilePath != "" {
		data, err := readConfigFile(ctx, gh, cfg.ConfigFilePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration file.", "path", cfg.ConfigFilePath)
	}

	cfg.Proxy = fileCfg.Proxy
	fill(&cfg.Store, fileCfg.Store.Kind, StoreMemory)
	fill(&cfg.StorePath, fileCfg.Store.Path, ".proxy_config.json")
	fill(&cfg.RedisAddr, fileCfg.Store.RedisAddr, "")
	fill(&cfg.RedisPassword, fileCfg.Store.RedisPassword, "")
	fill(&cfg.RedisKey, fileCfg.Store.RedisKey, "legacybridge:proxy_config")
	if cfg.RedisDB == 0 {
		cfg.RedisDB = fileCfg.Store.RedisDB
	}
	cfg.Store = strings.ToLower(cfg.Store)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(ctx context.Context, gh *github.Source, path string) ([]byte, error) {
	if github.IsURL(path) {
		if gh == nil {
			return nil, fmt.Errorf("config file '%s' needs a GitHub source", path)
		}
		data, err := gh.Fetch(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from GitHub '%s': %w", path, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return data, nil
}

// fill sets *dst from the file, then the default, when the environment left
// it empty.
func fill(dst *string, fromFile, def string) {
	if *dst != "" {
		return
	}
	if fromFile != "" {
		*dst = fromFile
		return
	}
	*dst = def
}
