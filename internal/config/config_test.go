package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearServiceEnv blanks every variable applyEnv reads so tests see only
// what they set themselves.
func clearServiceEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		"RAW_DATA_DIR", "PREPARED_DATA_DIR", "LIBREOFFICE_PATH",
		"API_PORT", "CONVERT_TIMEOUT", "CONVERT_WORKERS",
		"COPY_PASSTHROUGH", "FAIL_ON_EMPTY", "CONVERT_SCHEDULE",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearServiceEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/app/raw_data", cfg.Source.Path)
	assert.Equal(t, "/app/prepared_data", cfg.Destination.Path)
	assert.Empty(t, cfg.Converter.Binary)
	assert.Equal(t, 2*time.Minute, cfg.Converter.Timeout)
	assert.Equal(t, 2, cfg.Converter.Workers)
	assert.False(t, cfg.Converter.CopyPassthrough)
	assert.False(t, cfg.Converter.FailOnEmpty)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Empty(t, cfg.Schedule.Cron)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFile(t *testing.T) {
	clearServiceEnv(t)
	t.Setenv("TEST_DOCS_ROOT", "/srv/docs")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  path: $(TEST_DOCS_ROOT)/raw
destination:
  path: $(TEST_DOCS_ROOT)/prepared
converter:
  timeout: 90s
  workers: 4
  copyPassthrough: true
schedule:
  cron: "0 * * * *"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs/raw", cfg.Source.Path)
	assert.Equal(t, "/srv/docs/prepared", cfg.Destination.Path)
	assert.Equal(t, 90*time.Second, cfg.Converter.Timeout)
	assert.Equal(t, 4, cfg.Converter.Workers)
	assert.True(t, cfg.Converter.CopyPassthrough)
	assert.Equal(t, "0 * * * *", cfg.Schedule.Cron)

	// untouched sections keep their defaults
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileErrors(t *testing.T) {
	clearServiceEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("source: [unclosed"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshalling yaml")
	})
}

func TestEnvOverrides(t *testing.T) {
	clearServiceEnv(t)
	t.Setenv("RAW_DATA_DIR", "/data/in")
	t.Setenv("PREPARED_DATA_DIR", "/data/out")
	t.Setenv("LIBREOFFICE_PATH", "/opt/libreoffice/program/soffice")
	t.Setenv("API_PORT", "9000")
	t.Setenv("CONVERT_TIMEOUT", "45s")
	t.Setenv("CONVERT_WORKERS", "8")
	t.Setenv("COPY_PASSTHROUGH", "true")
	t.Setenv("FAIL_ON_EMPTY", "1")
	t.Setenv("CONVERT_SCHEDULE", "*/15 * * * *")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.Source.Path)
	assert.Equal(t, "/data/out", cfg.Destination.Path)
	assert.Equal(t, "/opt/libreoffice/program/soffice", cfg.Converter.Binary)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Converter.Timeout)
	assert.Equal(t, 8, cfg.Converter.Workers)
	assert.True(t, cfg.Converter.CopyPassthrough)
	assert.True(t, cfg.Converter.FailOnEmpty)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule.Cron)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	clearServiceEnv(t)
	t.Setenv("API_PORT", "9100")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestEnvOverrideErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "API_PORT", "eighty"},
		{"bad timeout", "CONVERT_TIMEOUT", "soon"},
		{"bad workers", "CONVERT_WORKERS", "many"},
		{"bad passthrough flag", "COPY_PASSTHROUGH", "maybe"},
		{"bad empty flag", "FAIL_ON_EMPTY", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearServiceEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("120")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	d, err = parseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseDuration("later")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return Default() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty source", func(c *Config) { c.Source.Path = "" }, "source.path"},
		{"empty destination", func(c *Config) { c.Destination.Path = "" }, "destination.path"},
		{"zero timeout", func(c *Config) { c.Converter.Timeout = 0 }, "converter.timeout"},
		{"zero workers", func(c *Config) { c.Converter.Workers = 0 }, "converter.workers"},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, valid().Validate())
}
