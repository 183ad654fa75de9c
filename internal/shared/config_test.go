package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:5000/api" {
			t.Errorf("expected base URL http://localhost:5000/api, got %s", config.API.BaseURL)
		}
		if config.Upload.Container != "videos" {
			t.Errorf("expected container videos, got %s", config.Upload.Container)
		}
		if config.Upload.BlockSize() != 4<<20 {
			t.Errorf("expected 4 MiB blocks, got %d", config.Upload.BlockSize())
		}
		if config.UI.Debounce() != 300*time.Millisecond {
			t.Errorf("expected 300ms debounce, got %v", config.UI.Debounce())
		}
		if config.UI.SuggestionMinLength != 2 {
			t.Errorf("expected suggestion min length 2, got %d", config.UI.SuggestionMinLength)
		}
		if config.Session.Store != "sqlite" {
			t.Errorf("expected sqlite session store, got %s", config.Session.Store)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("overrides and keeps defaults", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			testConfig := `[api]
base_url = "https://cms.example.com/api"
rate_limit = 2.5

[upload]
container = "raw"
`
			if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.API.BaseURL != "https://cms.example.com/api" {
				t.Errorf("expected overridden base URL, got %s", config.API.BaseURL)
			}
			if config.API.RateLimit != 2.5 {
				t.Errorf("expected rate limit 2.5, got %v", config.API.RateLimit)
			}
			if config.Upload.Container != "raw" {
				t.Errorf("expected container raw, got %s", config.Upload.Container)
			}
			if config.Upload.Prefix != "video" {
				t.Errorf("expected default prefix to survive, got %s", config.Upload.Prefix)
			}
		})

		t.Run("missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})

		t.Run("malformed file", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("[api\nbase_url="), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if _, err := LoadConfig(configPath); err == nil {
				t.Error("expected parse error")
			}
		})
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Run("environment wins over file values", func(t *testing.T) {
			t.Setenv("VCMS_API_BASE_URL", "https://env.example.com")
			t.Setenv("VCMS_UI_DEBOUNCE_MS", "50")

			config := DefaultConfig()
			if err := ApplyEnv(config, ""); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.API.BaseURL != "https://env.example.com" {
				t.Errorf("expected env base URL, got %s", config.API.BaseURL)
			}
			if config.UI.DebounceMS != 50 {
				t.Errorf("expected debounce 50, got %d", config.UI.DebounceMS)
			}
			if config.Upload.Container != "videos" {
				t.Errorf("expected untouched container, got %s", config.Upload.Container)
			}
		})

		t.Run("loads dotenv file", func(t *testing.T) {
			dotenv := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(dotenv, []byte("VCMS_UPLOAD_PREFIX=clip\n"), 0644); err != nil {
				t.Fatalf("failed to write dotenv: %v", err)
			}
			t.Setenv("VCMS_UPLOAD_PREFIX", "")
			os.Unsetenv("VCMS_UPLOAD_PREFIX")

			config := DefaultConfig()
			if err := ApplyEnv(config, dotenv); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Upload.Prefix != "clip" {
				t.Errorf("expected prefix from dotenv, got %s", config.Upload.Prefix)
			}
		})

		t.Run("missing dotenv is ignored", func(t *testing.T) {
			config := DefaultConfig()
			if err := ApplyEnv(config, filepath.Join(t.TempDir(), ".env")); err != nil {
				t.Errorf("expected missing dotenv to be ignored, got %v", err)
			}
		})

		t.Run("bad value", func(t *testing.T) {
			t.Setenv("VCMS_UI_DEBOUNCE_MS", "soon")
			err := ApplyEnv(DefaultConfig(), "")
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{"relative base URL", func(c *Config) { c.API.BaseURL = "/api" }},
			{"non-http scheme", func(c *Config) { c.API.BaseURL = "ftp://example.com" }},
			{"zero block size", func(c *Config) { c.Upload.BlockSizeMiB = 0 }},
			{"empty container", func(c *Config) { c.Upload.Container = "" }},
			{"unknown store", func(c *Config) { c.Session.Store = "redis" }},
			{"negative rate", func(c *Config) { c.API.RateLimit = -1 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
