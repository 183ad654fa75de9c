package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Upload   UploadConfig   `toml:"upload"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	UI       UIConfig       `toml:"ui"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL        string  `toml:"base_url" env:"VCMS_API_BASE_URL"`
	TimeoutSeconds int     `toml:"timeout_seconds" env:"VCMS_API_TIMEOUT_SECONDS"`
	RateLimit      float64 `toml:"rate_limit" env:"VCMS_API_RATE_LIMIT"`
}

// UploadConfig contains object storage upload defaults.
type UploadConfig struct {
	Container    string `toml:"container" env:"VCMS_UPLOAD_CONTAINER"`
	Prefix       string `toml:"prefix" env:"VCMS_UPLOAD_PREFIX"`
	BlockSizeMiB int    `toml:"block_size_mib" env:"VCMS_UPLOAD_BLOCK_SIZE_MIB"`
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	Store string `toml:"store" env:"VCMS_SESSION_STORE"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"VCMS_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"VCMS_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"VCMS_DATABASE_MAX_IDLE_CONNS"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"VCMS_LOG_LEVEL"`
}

// UIConfig contains interactive input settings.
type UIConfig struct {
	DebounceMS          int `toml:"debounce_ms" env:"VCMS_UI_DEBOUNCE_MS"`
	SuggestionMinLength int `toml:"suggestion_min_length" env:"VCMS_UI_SUGGESTION_MIN_LENGTH"`
}

// Debounce returns the configured input quiet period.
func (c UIConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Timeout returns the configured transport timeout, zero meaning none.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BlockSize returns the upload block size in bytes.
func (c UploadConfig) BlockSize() int64 {
	return int64(c.BlockSizeMiB) << 20
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads dotenv (when the file exists) into the process environment and then
// overlays VCMS_* variables onto config.
func ApplyEnv(config *Config, dotenv string) error {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", dotenv, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: api.base_url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.API.BaseURL)
	}
	if c.Upload.BlockSizeMiB <= 0 {
		return fmt.Errorf("%w: upload.block_size_mib must be positive", ErrInvalidConfig)
	}
	if c.Upload.Container == "" {
		return fmt.Errorf("%w: upload.container is required", ErrInvalidConfig)
	}
	switch c.Session.Store {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w: session.store must be sqlite or memory, got %q", ErrInvalidConfig, c.Session.Store)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit cannot be negative", ErrInvalidConfig)
	}
	return nil
}
