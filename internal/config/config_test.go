package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.census.gov/data", cfg.Census.BaseURL)
	assert.Equal(t, 2022, cfg.Census.Year)
	assert.Equal(t, "acs/acs5", cfg.Census.Dataset)
	assert.Empty(t, cfg.Census.APIKey)
	assert.Equal(t, 49, cfg.Census.MaxVarsPerRequest)
	assert.Equal(t, "acsmap/1.0", cfg.Fetch.UserAgent)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.InDelta(t, 10.0, cfg.Fetch.RatePerSec, 0.001)
	assert.Equal(t, "geojson", cfg.Render.Format)
	assert.Equal(t, ".", cfg.Render.OutputDir)
	assert.Equal(t, 9, cfg.Render.Buckets)
	assert.True(t, cfg.Render.ShowLabels)
	assert.True(t, cfg.Render.DropMissingZIP)
	assert.Equal(t, "https://www2.census.gov/geo/tiger", cfg.Boundary.BaseURL)
	assert.Equal(t, 2023, cfg.Boundary.Year)
	assert.Equal(t, "/tmp/acsmap/boundaries", cfg.Boundary.Dir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "acsmap.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
census:
  year: 2021
  dataset: acs/acs1
render:
  format: xlsx
  buckets: 5
  drop_missing_zip: false
store:
  driver: postgres
  database_url: postgres://localhost/acsmap
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins: ["https://maps.example.com"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2021, cfg.Census.Year)
	assert.Equal(t, "acs/acs1", cfg.Census.Dataset)
	assert.Equal(t, "xlsx", cfg.Render.Format)
	assert.Equal(t, 5, cfg.Render.Buckets)
	assert.False(t, cfg.Render.DropMissingZIP)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://maps.example.com"}, cfg.Server.AllowedOrigins)
	// Defaults still apply for unset values
	assert.Equal(t, "https://api.census.gov/data", cfg.Census.BaseURL)
	assert.True(t, cfg.Render.ShowLabels)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ACSMAP_STORE_DRIVER", "postgres")
	t.Setenv("ACSMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ACSMAP_SERVER_PORT", "3000")
	t.Setenv("ACSMAP_CENSUS_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Census.APIKey)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("census: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Census.BaseURL = "https://api.census.gov/data"
	cfg.Census.Year = 2022
	cfg.Census.MaxVarsPerRequest = 49
	cfg.Fetch.RatePerSec = 10
	cfg.Render.Buckets = 9
	cfg.Boundary.Dir = "/tmp/acsmap/boundaries"
	cfg.Store.Driver = "sqlite"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRender(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("render"))
}

func TestValidateRender_Problems(t *testing.T) {
	cfg := validDefaults()
	cfg.Census.BaseURL = ""
	cfg.Render.Buckets = 10
	cfg.Census.MaxVarsPerRequest = 50

	err := cfg.Validate("render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census.base_url is required")
	assert.Contains(t, err.Error(), "render.buckets must be between 1 and 9")
	assert.Contains(t, err.Error(), "max_vars_per_request")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateHistory_Postgres(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("history")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/acsmap"
	assert.NoError(t, cfg.Validate("history"))

	cfg.Store.Driver = "mysql"
	assert.Error(t, cfg.Validate("history"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
