package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: "8080", Mode: "debug"},
		Contest:   ContestConfig{DefaultPointsPrecision: 3, MaxVirtualJoinRetries: 5},
		RateLimit: RateLimitConfig{MaxRequests: 300, WindowMinutes: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"short secret in release", func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" }, false},
		{"precision out of range", func(c *Config) { c.Contest.DefaultPointsPrecision = 11 }, false},
		{"no virtual retries", func(c *Config) { c.Contest.MaxVirtualJoinRetries = 0 }, false},
		{"zero max requests", func(c *Config) { c.RateLimit.MaxRequests = 0 }, false},
		{"negative window", func(c *Config) { c.RateLimit.WindowMinutes = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  port: "9090"
storage:
  local_path: "`+filepath.ToSlash(uploads)+`"
rate_limit:
  max_requests: 60
  window_minutes: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 3, cfg.Contest.DefaultPointsPrecision)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window())
	assert.DirExists(t, uploads)
}

func TestLoadConfigRejectsZeroRateLimit(t *testing.T) {
	dir := writeConfig(t, `
storage:
  local_path: "`+filepath.ToSlash(t.TempDir())+`"
rate_limit:
  max_requests: 0
`)
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "rate_limit.max_requests")
}
