// Package config loads the TOML configuration file and supplies defaults
// when it is absent.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all user-tunable settings.
type Config struct {
	// StateDir holds the catalog database, the device identity file and
	// the lock file.
	StateDir string `toml:"state_dir"`

	// DatabasePath overrides the default catalog location under StateDir.
	DatabasePath string `toml:"database_path"`

	// Language is the language code recorded on imported chapter variants
	// when the archive does not declare one.
	Language string `toml:"language"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	stateDir := ".novelshelf"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".novelshelf")
	}
	return Config{
		StateDir:  stateDir,
		Language:  "en",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "novelshelf", "config.toml")
	}
	return "config.toml"
}

// Load reads the config file at path, falling back to defaults for an
// absent file and for any field left unset.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
}

// CatalogPath returns the SQLite database location.
func (c Config) CatalogPath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.StateDir, "catalog.db")
}

// LockPath returns the lock file guarding catalog mutation.
func (c Config) LockPath() string {
	return filepath.Join(c.StateDir, "novelshelf.lock")
}

// EnsureDirectories creates the state directory when missing.
func (c Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("ensure state directory: %w", err)
	}
	if dir := filepath.Dir(c.CatalogPath()); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure database directory: %w", err)
		}
	}
	return nil
}
