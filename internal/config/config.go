// Package config loads runtime settings from an optional YAML file and the
// environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost   = "127.0.0.1"
	defaultPort   = "3000"
	defaultDBPath = "visionary.db"
)

type Config struct {
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	AppURL string `yaml:"app_url"`
	DBPath string `yaml:"db_path"`

	Google     GoogleConfig     `yaml:"google"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// Load reads the file named by VISIONARY_CONFIG (if set) and applies
// environment overrides and defaults.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("VISIONARY_CONFIG"))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	overrideFromEnv(&cfg.Host, "HOST")
	overrideFromEnv(&cfg.Port, "PORT")
	overrideFromEnv(&cfg.AppURL, "APP_URL")
	overrideFromEnv(&cfg.DBPath, "VISIONARY_DB")
	overrideFromEnv(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	overrideFromEnv(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	overrideFromEnv(&cfg.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	overrideFromEnv(&cfg.OpenRouter.BaseURL, "OPENROUTER_BASE_URL")
	overrideFromEnv(&cfg.OpenRouter.Model, "OPENROUTER_MODEL")
	overrideFromEnv(&cfg.OpenRouter.Timeout, "OPENROUTER_TIMEOUT")

	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:" + cfg.Port
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	if _, err := cfg.OpenRouterTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// OpenRouterTimeout parses the configured timeout. Zero means the client
// default.
func (c *Config) OpenRouterTimeout() (time.Duration, error) {
	if c.OpenRouter.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.OpenRouter.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid openrouter timeout %q: %w", c.OpenRouter.Timeout, err)
	}
	return d, nil
}

// Validate reports settings required for the Google export flow.
func (c *Config) Validate() error {
	var errs []error
	if c.Google.ClientID == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is not set"))
	}
	if c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET is not set"))
	}
	return errors.Join(errs...)
}
