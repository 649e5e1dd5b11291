package token

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/revokehq/revokectl/internal/chain"
)

// Standard is the inferred token standard of a contract.
type Standard string

const (
	StandardUnknown Standard = "unknown"
	StandardERC20   Standard = "erc20"
	StandardERC721  Standard = "erc721"
)

// Event signature topics shared by ERC20 and ERC721. Transfer and Approval
// have identical signatures in both standards; only the number of indexed
// arguments differs (ERC721 indexes the tokenId, so its logs carry 4 topics).
var (
	TopicTransfer       = EventTopic("Transfer(address,address,uint256)")
	TopicApproval       = EventTopic("Approval(address,address,uint256)")
	TopicApprovalForAll = EventTopic("ApprovalForAll(address,address,bool)")
)

// EventTopic computes the Keccak-256 topic0 for an event signature.
func EventTopic(sig string) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return common.BytesToHash(h.Sum(nil))
}

// AddressTopic left-pads an address to the 32-byte topic encoding used for
// indexed address arguments.
func AddressTopic(addr common.Address) string {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return "0x" + hex.EncodeToString(word)
}

// Classify infers the token standard of a contract from the shape of one of
// its logs: topic0 selector plus topic count. No contract call is made, so
// hundreds of distinct contracts can be classified without a network
// round-trip. Ambiguous shapes return StandardUnknown and the contract is
// excluded from further processing.
func Classify(l chain.Log) Standard {
	if len(l.Topics) == 0 {
		return StandardUnknown
	}
	switch l.Topics[0] {
	case TopicApprovalForAll:
		return StandardERC721
	case TopicTransfer, TopicApproval:
		switch len(l.Topics) {
		case 4: // tokenId is indexed
			return StandardERC721
		case 3: // amount lives in data
			return StandardERC20
		}
	}
	return StandardUnknown
}
