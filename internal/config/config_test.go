package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// isolate runs the test in an empty directory with no config-related env.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{
		"DATABASE_URL",
		"ZONES_STORE_DRIVER",
		"ZONES_STORE_DATABASE_URL",
		"ZONES_SERVER_PORT",
		"ZONES_SCORING_STRATEGY",
		"ZONES_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Len(t, cfg.Overpass.Endpoints, 3)
	assert.Equal(t, 180, cfg.Overpass.TimeoutSecs)
	assert.Equal(t, "Karnataka", cfg.Overpass.BusinessArea)
	assert.Equal(t, 4, cfg.Overpass.BusinessAdminLevel)
	assert.Equal(t, "Bangalore", cfg.Overpass.TransitArea)
	assert.Equal(t, 8, cfg.Overpass.TransitAdminLevel)
	assert.Equal(t, 5000, cfg.Overpass.TransitLimit)
	assert.Equal(t, "opportunity_adjusted", cfg.Scoring.Strategy)
	assert.Zero(t, cfg.Scoring.HighQuantile)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ZONES_STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "zones.db")
	t.Setenv("ZONES_SERVER_PORT", "8080")
	t.Setenv("ZONES_SCORING_STRATEGY", "plain")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "zones.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "plain", cfg.Scoring.Strategy)
}

func TestLoad_PrefixedDatabaseURLWins(t *testing.T) {
	isolate(t)
	t.Setenv("ZONES_STORE_DATABASE_URL", "postgres://primary")
	t.Setenv("DATABASE_URL", "postgres://legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary", cfg.Store.DatabaseURL)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	yaml := `
scoring:
  strategy: plain
  high_quantile: 0.95
  mid_quantile: 0.5
overpass:
  timeout_secs: 60
  endpoints:
    - http://localhost:12345/api/interpreter
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "plain", cfg.Scoring.Strategy)
	assert.Equal(t, 0.95, cfg.Scoring.HighQuantile)
	assert.Equal(t, 0.5, cfg.Scoring.MidQuantile)
	assert.Equal(t, []string{"http://localhost:12345/api/interpreter"}, cfg.Overpass.Endpoints)
	assert.Equal(t, int64(60), int64(cfg.Overpass.Timeout().Seconds()))
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ZONES_LOG_LEVEL=debug\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("ZONES_STORE_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Store:    StoreConfig{Driver: "sqlite"},
		Overpass: OverpassConfig{Endpoints: []string{"http://localhost"}},
		Scoring:  ScoringConfig{Strategy: "opportunity_adjusted"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "oracle" }, true},
		{"no endpoints", func(c *Config) { c.Overpass.Endpoints = nil }, true},
		{"unknown strategy", func(c *Config) { c.Scoring.Strategy = "greedy" }, true},
		{"quantile above one", func(c *Config) { c.Scoring.HighQuantile = 1.5 }, true},
		{"negative quantile", func(c *Config) { c.Scoring.MidQuantile = -0.1 }, true},
		{"mid above high", func(c *Config) { c.Scoring.HighQuantile, c.Scoring.MidQuantile = 0.6, 0.9 }, true},
		{"custom quantiles", func(c *Config) { c.Scoring.HighQuantile, c.Scoring.MidQuantile = 0.8, 0.4 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
