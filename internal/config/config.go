package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	EnvBackendURI = "THREADTERM_BACKEND_URI"
	EnvThread     = "THREADTERM_THREAD"
	EnvLogLevel   = "THREADTERM_LOG_LEVEL"
)

type BackendConfig struct {
	URI            string `toml:"uri"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StashConfig struct {
	Backend string `toml:"backend"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type ServerConfig struct {
	Bind       string `toml:"bind"`
	Prefix     string `toml:"prefix"`
	StorageDir string `toml:"storage_dir"`
}

type Config struct {
	// Thread is opened on start when no thread is given on the command line.
	Thread  string        `toml:"thread"`
	DataDir string        `toml:"data_dir"`
	Backend BackendConfig `toml:"backend"`
	Stash   StashConfig   `toml:"stash"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
}

var (
	stashBackends = []string{"memory", "file", "sqlite", "pebble"}
	logLevels     = []string{"debug", "info", "warn", "error", "fatal", "disabled"}
)

func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		DataDir: dataDir,
		Backend: BackendConfig{
			URI:            "http://127.0.0.1:8000/api",
			TimeoutSeconds: 30,
		},
		Stash: StashConfig{
			Backend: "sqlite",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dataDir, "threadterm.log"),
		},
		Server: ServerConfig{
			Bind:       "127.0.0.1:8000",
			Prefix:     "/api",
			StorageDir: filepath.Join(dataDir, "threads"),
		},
	}
}

// DefaultPath is where LoadOrCreate looks when no --config is given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// LoadOrCreate reads the config at path, writing the defaults there first
// if the file does not exist.
func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return config, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return config, errors.Wrap(err, "create config directory")
		}
		configData, err := toml.Marshal(config)
		if err != nil {
			return config, err
		}
		if err := os.WriteFile(path, configData, 0o644); err != nil {
			return config, errors.Wrap(err, "write default config")
		}
		return config, nil
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := toml.Unmarshal(configData, &config); err != nil {
		return config, errors.Wrapf(err, "parse %s", path)
	}

	config.normalize()
	return config, config.Validate()
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

// ApplyEnv overrides fields from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBackendURI)); v != "" {
		c.Backend.URI = v
	}
	if v := strings.TrimSpace(getenv(EnvThread)); v != "" {
		c.Thread = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

func (c *Config) normalize() {
	c.DataDir = expandPath(c.DataDir)
	c.Log.File = expandPath(c.Log.File)
	c.Server.StorageDir = expandPath(c.Server.StorageDir)
	c.Backend.URI = strings.TrimSpace(c.Backend.URI)
	c.Thread = strings.TrimSpace(c.Thread)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Stash.Backend = strings.ToLower(strings.TrimSpace(c.Stash.Backend))

	if c.Server.Prefix != "" && !strings.HasPrefix(c.Server.Prefix, "/") {
		c.Server.Prefix = "/" + c.Server.Prefix
	}
	c.Server.Prefix = strings.TrimRight(c.Server.Prefix, "/")
}

func (c Config) Validate() error {
	if c.Backend.URI == "" {
		return errors.New("backend.uri is required")
	}
	if c.Backend.TimeoutSeconds < 0 {
		return errors.New("backend.timeout_seconds must not be negative")
	}
	if !slices.Contains(stashBackends, c.Stash.Backend) {
		return errors.Errorf("stash.backend must be one of %s", strings.Join(stashBackends, ", "))
	}
	if c.Log.Level != "" && !slices.Contains(logLevels, c.Log.Level) {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// RequestTimeout is zero when timeouts are disabled.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()

	if homeDir == "" {
		return ".threadterm"
	}

	return filepath.Join(homeDir, ".threadterm")
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, _ := os.UserHomeDir()
	if homeDir == "" {
		return path
	}

	trimmed := strings.TrimPrefix(path, "~")
	trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))
	return filepath.Join(homeDir, trimmed)
}
