// Package daemon holds the service configuration, loaded from a TOML file
// with environment overrides for the external store credentials.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full service configuration.
type Config struct {
	API      APIConfig      `toml:"api"`
	Airtable AirtableConfig `toml:"airtable"`
	Store    StoreConfig    `toml:"store"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// AirtableConfig holds the external store credentials. BaseID and APIToken
// have no defaults; without them submission fails fast as NotConfigured.
type AirtableConfig struct {
	BaseID         string `toml:"base_id"`
	APIToken       string `toml:"api_token"`
	TableID        string `toml:"table_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StoreConfig controls local persistence.
type StoreConfig struct {
	Dir string `toml:"dir"` // empty means <config dir>/data
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8787,
			Metrics: true,
		},
		Airtable: AirtableConfig{
			TimeoutSeconds: 10,
		},
	}
}

// ConfigDir returns the configuration directory, honoring
// KARBON_REFERRAL_HOME for tests and containers.
func ConfigDir() string {
	if env := os.Getenv("KARBON_REFERRAL_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".karbon-referral")
}

// DataDir returns the directory for the SQLite database.
func (c Config) DataDir() string {
	if c.Store.Dir != "" {
		return c.Store.Dir
	}
	return filepath.Join(ConfigDir(), "data")
}

// Load reads config.toml if present, applies defaults for missing sections,
// and then applies environment overrides. A missing file is not an error.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(ConfigDir(), "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Environment wins over the file so deployments never need to write
	// secrets to disk.
	if v := os.Getenv("AIRTABLE_BASE_ID"); v != "" {
		cfg.Airtable.BaseID = v
	}
	if v := os.Getenv("AIRTABLE_API_TOKEN"); v != "" {
		cfg.Airtable.APIToken = v
	}

	return cfg, nil
}

// Save writes the configuration to config.toml, creating the directory.
func (c Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.toml")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
