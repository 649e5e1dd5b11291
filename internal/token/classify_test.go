package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/revokehq/revokectl/internal/chain"
)

func TestEventTopics(t *testing.T) {
	// Canonical ERC20/ERC721 topic hashes.
	assert.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		TopicTransfer.Hex())
	assert.Equal(t,
		"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925",
		TopicApproval.Hex())
	assert.Equal(t,
		"0x17307eab39ab6107e8899845ad3d59bd9653f200f220920489ca2b5937696c31",
		TopicApprovalForAll.Hex())
}

func TestAddressTopic(t *testing.T) {
	addr := common.HexToAddress("0x802D8097eC1D49808F3c2c866020442891adde57")
	assert.Equal(t,
		"0x000000000000000000000000802d8097ec1d49808f3c2c866020442891adde57",
		AddressTopic(addr))
}

func TestClassify(t *testing.T) {
	owner := common.HexToHash("0x01")
	spender := common.HexToHash("0x02")
	tokenID := common.HexToHash("0x2a")

	tests := []struct {
		name   string
		topics []common.Hash
		want   Standard
	}{
		{"erc20 approval", []common.Hash{TopicApproval, owner, spender}, StandardERC20},
		{"erc721 approval", []common.Hash{TopicApproval, owner, spender, tokenID}, StandardERC721},
		{"erc20 transfer", []common.Hash{TopicTransfer, owner, spender}, StandardERC20},
		{"erc721 transfer", []common.Hash{TopicTransfer, owner, spender, tokenID}, StandardERC721},
		{"approval for all", []common.Hash{TopicApprovalForAll, owner, spender}, StandardERC721},
		{"no topics", nil, StandardUnknown},
		{"unindexed transfer", []common.Hash{TopicTransfer}, StandardUnknown},
		{"foreign event", []common.Hash{common.HexToHash("0xdead"), owner, spender}, StandardUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(chain.Log{Topics: tt.topics}))
		})
	}
}
