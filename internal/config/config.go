// Package config loads tasktree settings from defaults, an optional TOML
// file and TASKTREE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"

	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type Config struct {
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`

	Storage   StorageConfig   `toml:"storage"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	CORS      CORSConfig      `toml:"cors"`
	Tracing   TracingConfig   `toml:"tracing"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	// ResetOnMalformed starts from an empty forest when persisted data cannot
	// be decoded. Off by default: startup aborts instead.
	ResetOnMalformed bool `toml:"reset_on_malformed"`
}

type AuthConfig struct {
	Mode        string `toml:"mode"`
	APIKey      string `toml:"api_key"`
	BearerToken string `toml:"bearer_token"`
}

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type TracingConfig struct {
	Exporter string `toml:"exporter"`
	Endpoint string `toml:"endpoint"`
}

func Default() *Config {
	return &Config{
		Addr:     ":8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "data/tasks.json",
		},
		Auth:      AuthConfig{Mode: "none"},
		RateLimit: RateLimitConfig{RPS: 0, Burst: 20},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		Tracing:   TracingConfig{Exporter: ExporterNone},
	}
}

// Load builds the configuration. path may be empty, in which case no file is
// read. A path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TASKTREE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKTREE_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("TASKTREE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TASKTREE_RESET_ON_MALFORMED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKTREE_RESET_ON_MALFORMED: %w", err)
		}
		cfg.Storage.ResetOnMalformed = b
	}
	if v := os.Getenv("TASKTREE_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("TASKTREE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("TASKTREE_BEARER_TOKEN"); v != "" {
		cfg.Auth.BearerToken = v
	}
	if v := os.Getenv("TASKTREE_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TASKTREE_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = f
	}
	if v := os.Getenv("TASKTREE_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKTREE_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = n
	}
	if v := os.Getenv("TASKTREE_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
	if v := os.Getenv("TASKTREE_TRACING"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	return nil
}

// Validate normalizes enum-like fields and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path: required for %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	c.Auth.Mode = strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	switch c.Auth.Mode {
	case "", "none":
		c.Auth.Mode = "none"
	case "apikey":
		if c.Auth.APIKey == "" {
			errs = append(errs, errors.New("auth.api_key: required for apikey mode"))
		}
	case "bearer":
		if c.Auth.BearerToken == "" {
			errs = append(errs, errors.New("auth.bearer_token: required for bearer mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode: unknown mode %q", c.Auth.Mode))
	}

	if c.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("rate_limit.rps: must not be negative"))
	}

	c.Tracing.Exporter = strings.ToLower(strings.TrimSpace(c.Tracing.Exporter))
	switch c.Tracing.Exporter {
	case "", ExporterNone:
		c.Tracing.Exporter = ExporterNone
	case ExporterStdout, ExporterOTLP:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter))
	}

	return errors.Join(errs...)
}
