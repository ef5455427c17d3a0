// Package config loads parley configuration from a TOML file with env
// overrides and built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/parleychat/parley"
)

// Config is the full parley configuration. Zero values fall back to
// defaults during Load.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	UI     UIConfig     `toml:"ui"`
}

// ServerConfig locates the generation backend.
type ServerConfig struct {
	// BaseURL is the backend base URL, without a trailing slash.
	BaseURL string `toml:"base_url"`
}

// StoreConfig locates the conversation store.
type StoreConfig struct {
	// Path is the conversations JSON file. Parent directories are created
	// on first save.
	Path string `toml:"path"`
}

// UIConfig holds ANSI color overrides, indexed 0-255. -1 keeps the
// terminal default.
type UIConfig struct {
	Accent *int `toml:"accent"`
	Muted  *int `toml:"muted"`
	Error  *int `toml:"error"`
	User   *int `toml:"user"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{BaseURL: "http://localhost:8000"},
		Store:  StoreConfig{Path: defaultStorePath()},
	}
}

// DefaultPath returns the standard config file location,
// ~/.parley/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley", "config.toml"), nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "conversations.json"
	}
	return filepath.Join(home, ".parley", "conversations.json")
}

// Load reads the TOML file at path, fills missing values with defaults,
// applies env overrides, and validates. A missing file is not an error;
// defaults plus env overrides apply.
//
// Environment variables:
//   - PARLEY_SERVER_URL overrides server.base_url
//   - PARLEY_STORE_PATH overrides store.path
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PARLEY_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("PARLEY_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server.base_url %q", c.Server.BaseURL)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	return nil
}

// Theme returns the default theme with any UI color overrides applied.
func (c *Config) Theme() parley.Theme {
	theme := parley.DefaultTheme()
	if c.UI.Accent != nil {
		theme.Accent = *c.UI.Accent
	}
	if c.UI.Muted != nil {
		theme.Muted = *c.UI.Muted
	}
	if c.UI.Error != nil {
		theme.Error = *c.UI.Error
	}
	if c.UI.User != nil {
		theme.UserMsg = *c.UI.User
	}
	return theme
}
