// Package config loads the routegraph configuration file.
//
// The file is TOML:
//
//	[store]
//	backend = "redis"          # file, null, redis, postgres or mongo
//	url = "redis://localhost:6379/0"
//	prefix = "plant-1:"
//	ttl = "720h"
//
//	[server]
//	addr = ":8080"
//
//	[log]
//	level = "debug"
//
// Missing values take the defaults of [Default]. The file location is
// taken from ROUTEGRAPH_CONFIG, then $XDG_CONFIG_HOME/routegraph/config.toml,
// then ~/.config/routegraph/config.toml.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/routegraph/pkg/errors"
)

const (
	appName = "routegraph"

	// EnvPath names the environment variable overriding the config path.
	EnvPath = "ROUTEGRAPH_CONFIG"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendNull     = "null"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the complete configuration.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Backend string `toml:"backend"`
	// Path is the directory of the file backend.
	Path string `toml:"path"`
	// URL is the connection string of the redis, postgres and mongo backends.
	URL string `toml:"url"`
	// Database is the mongo database name.
	Database string `toml:"database"`
	// Prefix scopes all keys, e.g. per plant.
	Prefix string        `toml:"prefix"`
	TTL    time.Duration `toml:"ttl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFile
	}
	if c.Store.Backend == BackendFile && c.Store.Path == "" {
		if dir, err := DataDir(); err == nil {
			c.Store.Path = dir
		}
	}
	if c.Store.Backend == BackendMongo && c.Store.Database == "" {
		c.Store.Database = appName
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return errors.Invalid(errors.ErrCodeInvalidConfig, "store.path", "", "file store needs a path")
		}
	case BackendNull:
	case BackendRedis, BackendPostgres, BackendMongo:
		if c.Store.URL == "" {
			return errors.Invalid(errors.ErrCodeInvalidConfig, "store.url", "", "%s store needs a url", c.Store.Backend)
		}
	default:
		return errors.Invalid(errors.ErrCodeInvalidConfig, "store.backend", c.Store.Backend, "unknown store backend")
	}
	if c.Store.TTL < 0 {
		return errors.Invalid(errors.ErrCodeInvalidConfig, "store.ttl", c.Store.TTL.String(), "ttl cannot be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel, errors.Invalid(errors.ErrCodeInvalidConfig, "log.level", c.Log.Level, "unknown log level")
	}
	return lvl, nil
}

// Load reads the file at path and applies defaults. An empty path loads
// [Path]; a missing file at the default location yields [Default].
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case os.IsNotExist(err) && !explicit:
		return Default(), nil
	case os.IsNotExist(err):
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Invalid(errors.ErrCodeInvalidConfig, undecoded[0].String(), path, "unknown config key")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DataDir returns the default file store directory using the XDG standard
// (~/.local/share/routegraph/snapshots).
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName, "snapshots"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "snapshots"), nil
}
