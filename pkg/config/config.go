package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tabchat-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Store configuration (SQLite)
	Store StoreConfig `yaml:"store"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig holds SQLite store configuration.
type StoreConfig struct {
	Path           string `yaml:"path" env:"STORE_PATH" env-default:"tabchat.db"`
	MigrationsPath string `yaml:"migrations_path" env:"STORE_MIGRATIONS_PATH" env-default:"migrations"`
	// DataDir points at the CSV dataset to ingest on startup. Empty skips
	// ingestion.
	DataDir       string `yaml:"data_dir" env:"STORE_DATA_DIR" env-default:""`
	MaxOpenConns  int    `yaml:"max_open_conns" env:"STORE_MAX_OPEN_CONNS" env-default:"4"`
	MaxIdleConns  int    `yaml:"max_idle_conns" env:"STORE_MAX_IDLE_CONNS" env-default:"2"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" env:"STORE_BUSY_TIMEOUT_MS" env-default:"5000"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// Temperature defaults to 0 so SQL generation is deterministic.
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. If config.yaml does not exist, configuration comes from
// environment variables alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	err := cleanenv.ReadConfig("config.yaml", cfg)
	if errors.Is(err, os.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}
