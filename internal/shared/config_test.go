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

		if config.API.BaseURL != "http://localhost:9000/api/v1" {
			t.Errorf("expected default base URL, got %s", config.API.BaseURL)
		}
		if config.Auth.RefreshPath != "/auth/refresh" {
			t.Errorf("expected refresh path /auth/refresh, got %s", config.Auth.RefreshPath)
		}
		if config.Auth.EntryPoint != "/login" {
			t.Errorf("expected entry point /login, got %s", config.Auth.EntryPoint)
		}
		if config.Store.Driver != "file" {
			t.Errorf("expected file store driver, got %s", config.Store.Driver)
		}
		if config.Proxy.Port != 3000 {
			t.Errorf("expected proxy port 3000, got %d", config.Proxy.Port)
		}
		if config.Import.Concurrency != 4 {
			t.Errorf("expected import concurrency 4, got %d", config.Import.Concurrency)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("Durations", func(t *testing.T) {
		config := DefaultConfig()

		if got := config.API.Timeout(); got != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", got)
		}
		if got := config.Auth.RefreshTimeout(); got != 30*time.Second {
			t.Errorf("expected 30s refresh timeout, got %v", got)
		}
		if got := config.Auth.AccessTTL(); got != 24*time.Hour {
			t.Errorf("expected 24h access TTL, got %v", got)
		}
		if got := config.Auth.RefreshTTL(); got != 7*24*time.Hour {
			t.Errorf("expected 168h refresh TTL, got %v", got)
		}
		if got := config.Proxy.Addr(); got != "127.0.0.1:3000" {
			t.Errorf("expected 127.0.0.1:3000, got %s", got)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.API.BaseURL != DefaultConfig().API.BaseURL {
			t.Errorf("created config base URL doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[api]
base_url = "https://ams.example.com/api/v1"

[auth]
entry_point = "/register"

[store]
driver = "redis"

[store.redis]
addr = "10.0.0.5:6379"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://ams.example.com/api/v1" {
			t.Errorf("expected custom base URL, got %s", config.API.BaseURL)
		}
		if config.Auth.EntryPoint != "/register" {
			t.Errorf("expected /register, got %s", config.Auth.EntryPoint)
		}
		if config.Store.Redis.Addr != "10.0.0.5:6379" {
			t.Errorf("expected custom redis addr, got %s", config.Store.Redis.Addr)
		}
		if config.Auth.RefreshPath != "/auth/refresh" {
			t.Errorf("missing keys should keep defaults, got refresh path %q", config.Auth.RefreshPath)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[api\nbase_url ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "Empty Base URL", mutate: func(c *Config) { c.API.BaseURL = "" }},
			{name: "Bad Entry Point", mutate: func(c *Config) { c.Auth.EntryPoint = "/home" }},
			{name: "Unknown Driver", mutate: func(c *Config) { c.Store.Driver = "etcd" }},
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

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "http://api.internal/v1")
		t.Setenv(EnvStoreDriver, "memory")
		t.Setenv(EnvRedisAddr, "")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.API.BaseURL != "http://api.internal/v1" {
			t.Errorf("expected env base URL, got %s", config.API.BaseURL)
		}
		if config.Store.Driver != "memory" {
			t.Errorf("expected env driver, got %s", config.Store.Driver)
		}
		if config.Store.Redis.Addr != "127.0.0.1:6379" {
			t.Errorf("empty env var should not override, got %s", config.Store.Redis.Addr)
		}
	})

	t.Run("LoadDotEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("AMS_REDIS_ADDR=192.168.1.2:6380\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv(EnvRedisAddr, "")
		os.Unsetenv(EnvRedisAddr)

		if err := LoadDotEnv(envPath); err != nil {
			t.Fatalf("failed to load env file: %v", err)
		}
		if got := os.Getenv(EnvRedisAddr); got != "192.168.1.2:6380" {
			t.Errorf("expected value from env file, got %q", got)
		}

		if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("missing env file should not error: %v", err)
		}
	})

	t.Run("ExpandHome", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x/y") {
			t.Errorf("unexpected expansion %s", got)
		}
		if got := ExpandHome("/abs/path"); got != "/abs/path" {
			t.Errorf("absolute path should be unchanged, got %s", got)
		}
	})
}
