package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
server:
  host: 0.0.0.0
  port: 9000
storage:
  data_dir: /var/lib/inventoryd
journal:
  enabled: true
logging:
  level: DEBUG
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "/var/lib/inventoryd", cfg.Storage.DataDir)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, filepath.Join("/var/lib/inventoryd", "journal.db"), cfg.Journal.Path)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryConfig))
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryConfig))
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	path := writeConfig(t, `version: "9.9"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryConfig))
}

func TestLoad_InvalidPort(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 99999
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryConfig))
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("INVENTORYD_TEST_DATA_DIR", "/tmp/expanded")
	path := writeConfig(t, `
storage:
  data_dir: ${INVENTORYD_TEST_DATA_DIR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded", cfg.Storage.DataDir)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:8344", cfg.Server.Addr())
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.NATS.Enabled)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, Init(path, false))

	// Refuses to clobber without force.
	err := Init(path, false)
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryConfig))
	require.NoError(t, Init(path, true))

	// The starter file round-trips through Load.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8344, cfg.Server.Port)
	assert.True(t, cfg.Journal.Enabled)
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel("Debug"))
	assert.Equal(t, LogLevelError, NormalizeLogLevel(" ERROR "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel(""))
}

func TestNormalizeLogFormat(t *testing.T) {
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("bogus"))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogLevelDebug.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogLevelInfo.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogLevelWarn.SlogLevel())
	assert.Equal(t, slog.LevelError, LogLevelError.SlogLevel())
}
