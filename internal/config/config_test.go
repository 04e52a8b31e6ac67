package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/logging"
)

// setHome points the config directory at a temp dir and clears overrides.
func setHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NUTRICOUNT_HOME", dir)
	for _, k := range []string{
		"NUTRICOUNT_STORE_BACKEND", "NUTRICOUNT_STORE_PATH",
		"NUTRICOUNT_LOG_LEVEL", "NUTRICOUNT_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)
	return dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(content), 0o600))
}

func TestNew_Defaults(t *testing.T) {
	dir := setHome(t)
	cfg := config.New()

	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Store.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, config.FormatTable, cfg.Output.DefaultFormat)
	assert.Equal(t, config.DefaultPrecision, cfg.Output.Precision)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, config.DefaultMaxAttempts, cfg.Auth.MaxAttempts)
	assert.Equal(t, filepath.Join(dir, config.ConfigFileName), cfg.Path())
	require.NoError(t, cfg.Validate())
}

func TestShallowMergeYAML_SectionReplaced(t *testing.T) {
	dir := setHome(t)
	writeConfig(t, dir, `
output:
  default_format: json
unknown_section:
  foo: bar
`)
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.FormatJSON, cfg.Output.DefaultFormat)
	assert.Equal(t, 0, cfg.Output.Precision, "absent keys inside a present section are zeroed")
	assert.Equal(t, config.BackendFile, cfg.Store.Backend, "absent sections keep defaults")
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	require.Error(t, config.ShallowMergeYAML(nil, "x"))

	cfg := config.Default(t.TempDir())
	require.Error(t, config.ShallowMergeYAML(cfg, filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store: [unclosed"), 0o600))
	require.Error(t, config.ShallowMergeYAML(cfg, bad))
}

func TestLoad_BrokenFileStillUsable(t *testing.T) {
	dir := setHome(t)
	writeConfig(t, dir, "logging: {level: [")

	cfg, err := config.Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNew_EnvOverrides(t *testing.T) {
	dir := setHome(t)
	writeConfig(t, dir, "store:\n  backend: file\n  path: /from/file\n")
	t.Setenv("NUTRICOUNT_STORE_BACKEND", "sqlite")
	t.Setenv("NUTRICOUNT_STORE_PATH", "/from/env.db")
	t.Setenv("NUTRICOUNT_LOG_LEVEL", "debug")

	cfg := config.GetGlobalConfig()
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/from/env.db", cfg.Store.Path)
	assert.Equal(t, "debug", config.GetLoggingConfig().Level)
}

func TestGetSet(t *testing.T) {
	cfg := config.Default(t.TempDir())

	require.NoError(t, cfg.Set("output.precision", "2"))
	v, err := cfg.Get("output.precision")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, cfg.Set("auth.enabled", "true"))
	assert.True(t, cfg.Auth.Enabled)

	tests := []struct {
		key, value string
		wantErr    error
	}{
		{"nope.key", "x", config.ErrUnknownKey},
		{"store.backend", "postgres", config.ErrInvalidBackend},
		{"output.default_format", "csv", config.ErrInvalidFormat},
		{"output.precision", "9", config.ErrInvalidPrecision},
		{"auth.max_attempts", "0", config.ErrInvalidAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := cfg.Set(tt.key, tt.value)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	require.Error(t, cfg.Set("output.precision", "two"))
	assert.Equal(t, 2, cfg.Output.Precision, "failed sets leave the config unchanged")

	_, err = cfg.Get("missing")
	require.ErrorIs(t, err, config.ErrUnknownKey)
	assert.Contains(t, config.Keys(), "store.backend")
}

func TestSave_RoundTrip(t *testing.T) {
	dir := setHome(t)
	cfg := config.New()
	require.NoError(t, cfg.Set("store.backend", "sqlite"))
	require.NoError(t, cfg.Set("output.locale", "es"))
	require.NoError(t, cfg.Save())

	loaded, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, loaded.Store.Backend)
	assert.Equal(t, "es", loaded.Output.Locale)
	assert.Equal(t, filepath.Join(dir, "data"), loaded.Store.Path)
}

func TestToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "warn", Format: "json"}
	assert.Equal(t, logging.OutputStderr, lc.ToLoggingConfig().Output)

	lc.File = "/tmp/nutricount.log"
	got := lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, got.Output)
	assert.Equal(t, "/tmp/nutricount.log", got.File)
	assert.Equal(t, "warn", got.Level)
}
