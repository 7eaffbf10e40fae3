package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/V-SK/moltboard/infrastructure/config"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3456, cfg.Service.Port)
	assert.Equal(t, "https://www.moltbook.com/api/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, StrategyFanOut, cfg.Leaderboard.Strategy)
	assert.Equal(t, 2*time.Minute, cfg.Leaderboard.TTL)
	assert.Equal(t, 50, cfg.Leaderboard.PostWindow)
	assert.Equal(t, 15, cfg.Leaderboard.MaxAuthors)
	assert.Equal(t, time.Minute, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 2*time.Minute, cfg.Dashboard.AgentsInterval)
	assert.Equal(t, 5*time.Second, cfg.Dashboard.RetryDelay)
	assert.Equal(t, 3, cfg.Dashboard.Retries())
	assert.Equal(t, "http://localhost:3456", cfg.Dashboard.ServerURL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
service:
  port: 8080
leaderboard:
  strategy: passthrough
  ttl: 30s
dashboard:
  refresh_interval: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("MOLTBOOK_API_KEY", "secret")
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, StrategyPassthrough, cfg.Leaderboard.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Leaderboard.TTL)
	assert.Equal(t, 20*time.Second, cfg.Dashboard.AgentsInterval)
	assert.Equal(t, "secret", cfg.Upstream.APIKey)
	assert.Equal(t, "http://localhost:8080", cfg.Dashboard.ServerURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Service.Port = 70000 }, "service.port"},
		{"bad upstream", func(c *Config) { c.Upstream.BaseURL = "ftp://x" }, "upstream.base_url"},
		{"unknown strategy", func(c *Config) { c.Leaderboard.Strategy = "magic" }, "leaderboard.strategy"},
		{"zero ttl", func(c *Config) { c.Leaderboard.TTL = -time.Second }, "leaderboard.ttl"},
		{"no authors", func(c *Config) { c.Leaderboard.MaxAuthors = -1 }, "leaderboard.max_authors"},
		{"authors above cap", func(c *Config) { c.Leaderboard.MaxAuthors = 100 }, "leaderboard.max_authors"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var vErr *infraconfig.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Service.Port = 0
	cfg.Leaderboard.Strategy = "magic"
	cfg.Dashboard.RefreshInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service.port")
	assert.Contains(t, err.Error(), "leaderboard.strategy")
	assert.Contains(t, err.Error(), "dashboard.refresh_interval")
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LEADERBOARD_TTL", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEADERBOARD_TTL")
}

func TestLoad_ZeroRetriesIsKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("dashboard:\n  max_retries: 0\n"), 0o600))
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Dashboard.Retries())

	require.NoError(t, os.WriteFile(path, []byte("dashboard:\n  refresh_interval: 10s\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Dashboard.Retries())
}
