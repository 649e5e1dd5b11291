// Package config handles persistent CLI configuration and the tuning
// constants shared across packages.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = ".revokectl"
	configFileName = "config.json"

	// EnvConfigDir overrides the config directory location.
	EnvConfigDir = "REVOKECTL_CONFIG_DIR"
)

// Config is the persisted CLI configuration.
type Config struct {
	DefaultChain  string            `json:"default_chain"`
	Mode          string            `json:"mode"` // "mainnet" or "testnet"
	DefaultWallet string            `json:"default_wallet,omitempty"`
	RPCOverrides  map[string]string `json:"rpc_overrides,omitempty"`

	// Verbose is a runtime flag, never persisted.
	Verbose bool `json:"-"`
}

var dirOverride string

// SetDir overrides the config directory for this process, taking precedence
// over the environment variable. Used by the --config flag.
func SetDir(dir string) {
	dirOverride = dir
}

// Dir returns the config directory, creating it if needed.
func Dir() (string, error) {
	if dirOverride != "" {
		if err := os.MkdirAll(dirOverride, 0o700); err != nil {
			return "", fmt.Errorf("creating config dir: %w", err)
		}
		return dirOverride, nil
	}
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("creating config dir: %w", err)
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	return dir, nil
}

// Load reads the config file, returning defaults when none exists yet.
func Load() (*Config, error) {
	cfg := &Config{
		DefaultChain: DefaultChain,
		Mode:         DefaultMode,
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DefaultChain == "" {
		cfg.DefaultChain = DefaultChain
	}
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}
	return cfg, nil
}

// Save writes the config file with owner-only permissions.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, configFileName), data, 0o600)
}

// RPCFor returns the override RPC URL for a chain name, if configured.
func (c *Config) RPCFor(chainName string) (string, bool) {
	url, ok := c.RPCOverrides[chainName]
	return url, ok
}
