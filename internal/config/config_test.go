package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http://127.0.0.1:8000/api")

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Backend, again.Backend)
}

func TestLoadOrCreateReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
thread = " t1 "

[backend]
uri = "http://example.test/api"
timeout_seconds = 0

[stash]
backend = "Pebble"

[server]
prefix = "v1/"
`), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "t1", cfg.Thread)
	assert.Equal(t, "http://example.test/api", cfg.Backend.URI)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout())
	assert.Equal(t, "pebble", cfg.Stash.Backend)
	assert.Equal(t, "/v1", cfg.Server.Prefix)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep their defaults")
}

func TestLoadOrCreateRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty uri":        "[backend]\nuri = \"\"\n",
		"negative timeout": "[backend]\ntimeout_seconds = -1\n",
		"unknown stash":    "[stash]\nbackend = \"redis\"\n",
		"unknown level":    "[log]\nlevel = \"loud\"\n",
		"bad toml":         "[backend\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadOrCreate(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvBackendURI: "http://other:9000/api",
		EnvThread:     "t9",
		EnvLogLevel:   "DEBUG",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "http://other:9000/api", cfg.Backend.URI)
	assert.Equal(t, "t9", cfg.Thread)
	assert.Equal(t, "debug", cfg.Log.Level)

	before := cfg
	cfg.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, before, cfg)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("THREADTERM_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("THREADTERM_TEST_DOTENV", "")
	os.Unsetenv("THREADTERM_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("THREADTERM_TEST_DOTENV"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, "/abs", expandPath("/abs"))
	assert.Equal(t, "", expandPath(""))
}
