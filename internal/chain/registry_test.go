package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.GetByName("ethereum")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ChainID)

	c, err = reg.GetByName("BASE") // case-insensitive
	require.NoError(t, err)
	assert.Equal(t, int64(8453), c.ChainID)

	c, err = reg.GetByChainID(137)
	require.NoError(t, err)
	assert.Equal(t, "polygon", c.Name)

	_, err = reg.GetByName("nope")
	assert.ErrorIs(t, err, ErrChainNotFound)

	_, err = reg.GetByChainID(999999)
	assert.ErrorIs(t, err, ErrChainNotFound)
}

func TestRegistryClauseLimits(t *testing.T) {
	reg := NewRegistry()

	// Plain EVM chains carry exactly one call per transaction.
	for _, name := range []string{"ethereum", "polygon", "arbitrum", "optimism", "base", "bsc"} {
		c, err := reg.GetByName(name)
		require.NoError(t, err)
		assert.Equal(t, 1, c.MaxClauses, name)
	}

	vechain, err := reg.GetByName("vechain")
	require.NoError(t, err)
	assert.Equal(t, 20, vechain.MaxClauses)
}

func TestChainModeSelection(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.GetByName("ethereum")
	require.NoError(t, err)

	assert.NotEmpty(t, c.RPCs("mainnet"))
	assert.NotEmpty(t, c.RPCs("testnet"))
	assert.NotEqual(t, c.RPCs("mainnet")[0], c.RPCs("testnet")[0])
	assert.Contains(t, c.Explorer("testnet"), "sepolia")
}
