package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultChain, cfg.DefaultChain)
	assert.Equal(t, DefaultMode, cfg.Mode)
	assert.Empty(t, cfg.DefaultWallet)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	cfg := &Config{
		DefaultChain:  "base",
		Mode:          "testnet",
		DefaultWallet: "hot",
		RPCOverrides:  map[string]string{"base": "http://localhost:8545"},
	}
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "base", loaded.DefaultChain)
	assert.Equal(t, "testnet", loaded.Mode)
	assert.Equal(t, "hot", loaded.DefaultWallet)

	url, ok := loaded.RPCFor("base")
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8545", url)
	_, ok = loaded.RPCFor("ethereum")
	assert.False(t, ok)

	// Config file is owner-only.
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetDirOverridesEnv(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	override := t.TempDir()
	SetDir(override)
	t.Cleanup(func() { SetDir("") })

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, override, dir)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFillsEmptyFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultChain, cfg.DefaultChain)
	assert.Equal(t, DefaultMode, cfg.Mode)
}
