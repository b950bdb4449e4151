package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.URL)
	assert.Equal(t, ":8080", cfg.Serve.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("METAFORM_API_URL", "https://api.example.com")
	t.Setenv("METAFORM_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metaform.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serve:\n  addr: \":9999\"\n  seed: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Serve.Addr)
	assert.False(t, cfg.Serve.Seed)
	assert.Equal(t, "http://localhost:8080", cfg.API.URL, "defaults survive partial files")
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestNewLogger_RejectsBadLevel(t *testing.T) {
	_, err := NewLogger("chatty")
	assert.Error(t, err)

	log, err := NewLogger("warn")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
