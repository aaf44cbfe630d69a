package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_HasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8080", cfg.Endpoint)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Engines.DuckDB.Enabled)
	assert.False(t, cfg.Engines.Trino.Enabled)
	assert.Equal(t, 1000, cfg.Pipeline.DefaultRowCap)
	assert.Equal(t, 10000, cfg.Pipeline.MaxRowCap)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.DefaultTimeout)
	assert.Equal(t, 60*time.Second, cfg.AllowList.TTL)
	assert.Equal(t, "openai", cfg.NLSQL.ProviderType)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ReadsValuesFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
endpoint: https://explorer.example.com
database:
  host: db.example.com
  port: 6543
engines:
  trino:
    enabled: true
    host: trino.example.com
pipeline:
  defaultRowCap: 500
nlsql:
  enabled: true
  providerType: azure
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://explorer.example.com", cfg.Endpoint)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.Engines.Trino.Enabled)
	assert.Equal(t, "trino.example.com", cfg.Engines.Trino.Host)
	assert.Equal(t, 500, cfg.Pipeline.DefaultRowCap)
	assert.True(t, cfg.NLSQL.Enabled)
	assert.Equal(t, "azure", cfg.NLSQL.ProviderType)
}

func TestLoad_FallsBackToDefaultsWhenFieldsOmitted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: https://only-endpoint.example.com\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://only-endpoint.example.com", cfg.Endpoint)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Engines.DuckDB.Enabled)
	assert.Equal(t, 10000, cfg.Pipeline.MaxRowCap)
}

func TestLoad_MissingConfigFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Endpoint)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("DATA_EXPLORER_ENDPOINT", "https://env-override.example.com")

	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://env-override.example.com", cfg.Endpoint)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: [unterminated\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
