// Package config loads the service configuration from a YAML file with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	MaxFileMB int             `yaml:"max_file_mb"`
	Inference InferenceConfig `yaml:"inference"`
	Quota     QuotaConfig     `yaml:"quota"`
	Auth      AuthConfig      `yaml:"auth"`
}

// InferenceConfig configures the extraction engine endpoint and models.
type InferenceConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable that holds the API key.
	// The key itself never lives in the config file.
	APIKeyEnv      string        `yaml:"api_key_env"`
	Model          string        `yaml:"model"`
	VisionModel    string        `yaml:"vision_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// QuotaConfig configures per-user token accounting.
type QuotaConfig struct {
	// MonthlyTokens is the per-user allowance. 0 disables enforcement.
	MonthlyTokens int `yaml:"monthly_tokens"`
}

// AuthConfig configures HTTP basic auth. Empty users disables auth.
type AuthConfig struct {
	// Users maps username to bcrypt password hash.
	Users map[string]string `yaml:"users"`
}

// DefaultConfig returns sane defaults for a local single-user setup.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":8080",
		DBPath:    "agendex.db",
		MaxFileMB: 25,
		Inference: InferenceConfig{
			BaseURL:        "https://api.openai.com/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Model:          "gpt-4.1-mini",
			VisionModel:    "gpt-4.1-mini",
			RequestTimeout: 120 * time.Second,
		},
	}
}

// Load reads and parses a YAML config file, merged over DefaultConfig.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference.base_url is required")
	}
	if c.Inference.Model == "" {
		return fmt.Errorf("inference.model is required")
	}
	if c.Quota.MonthlyTokens < 0 {
		return fmt.Errorf("quota.monthly_tokens must be >= 0")
	}
	for user, hash := range c.Auth.Users {
		if user == "" || hash == "" {
			return fmt.Errorf("auth.users entries need a username and a bcrypt hash")
		}
	}
	return nil
}

// APIKey resolves the inference API key from the configured environment
// variable. Empty when unset, which disables the Authorization header.
func (c *Config) APIKey() string {
	if c.Inference.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Inference.APIKeyEnv)
}

// MaxFileBytes returns the upload size limit in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
