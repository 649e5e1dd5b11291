package revoke

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revokehq/revokectl/internal/allowance"
	"github.com/revokehq/revokectl/internal/events"
)

var (
	clauseContract = common.HexToAddress("0x00000000000000000000000000000000000aaaaa")
	clauseSpender  = common.HexToAddress("0x0000000000000000000000000000000000002222")
)

func TestBuildRevokeClauseERC20(t *testing.T) {
	c, err := BuildRevokeClause(allowance.Allowance{
		Contract: clauseContract,
		Spender:  clauseSpender,
		Symbol:   "AAA",
		Amount:   big.NewInt(500),
	})
	require.NoError(t, err)

	assert.Equal(t, clauseContract, c.To)
	assert.Equal(t, int64(0), c.Value.Int64())
	require.Len(t, c.Data, 4+32+32)

	// approve(address,uint256) with spender and amount zero.
	assert.Equal(t, "095ea7b3", hex.EncodeToString(c.Data[:4]))
	assert.Equal(t, clauseSpender, common.BytesToAddress(c.Data[4:36]))
	assert.Equal(t, make([]byte, 32), c.Data[36:68])
	assert.Contains(t, c.Comment, "AAA")
}

func TestBuildRevokeClauseNFTSingle(t *testing.T) {
	c, err := BuildRevokeClause(allowance.Allowance{
		Contract: clauseContract,
		Spender:  clauseSpender,
		TokenID:  big.NewInt(42),
	})
	require.NoError(t, err)

	// approve(0x0, tokenId) clears the single-token grant.
	assert.Equal(t, "095ea7b3", hex.EncodeToString(c.Data[:4]))
	assert.Equal(t, common.Address{}, common.BytesToAddress(c.Data[4:36]))
	assert.Equal(t, int64(42), new(big.Int).SetBytes(c.Data[36:68]).Int64())
}

func TestBuildRevokeClauseForAll(t *testing.T) {
	c, err := BuildRevokeClause(allowance.Allowance{
		Contract: clauseContract,
		Spender:  clauseSpender,
		ForAll:   true,
		Approved: true,
	})
	require.NoError(t, err)

	// setApprovalForAll(spender, false).
	assert.Equal(t, "a22cb465", hex.EncodeToString(c.Data[:4]))
	assert.Equal(t, clauseSpender, common.BytesToAddress(c.Data[4:36]))
	assert.Equal(t, make([]byte, 32), c.Data[36:68])
}

func TestBuildRevokeClausePermit2(t *testing.T) {
	c, err := BuildRevokeClause(allowance.Allowance{
		Contract: clauseContract,
		Spender:  clauseSpender,
		Amount:   big.NewInt(500),
		Permit2:  true,
	})
	require.NoError(t, err)

	// The call goes to the registry, not the token.
	assert.Equal(t, events.Permit2Address, c.To)
	require.Len(t, c.Data, 4+4*32)
	assert.Equal(t, "87517c45", hex.EncodeToString(c.Data[:4]))
	assert.Equal(t, clauseContract, common.BytesToAddress(c.Data[4:36]))
	assert.Equal(t, clauseSpender, common.BytesToAddress(c.Data[36:68]))
	assert.Equal(t, make([]byte, 64), c.Data[68:132])
}

func TestBuildRevokeClauseNoState(t *testing.T) {
	_, err := BuildRevokeClause(allowance.Allowance{Contract: clauseContract})
	assert.Error(t, err)
}
