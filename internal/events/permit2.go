package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/token"
)

// Permit2Address is the canonical deployment address of the Permit2
// signature registry, shared across chains.
var Permit2Address = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")

// Permit2 AllowanceTransfer event topics. Approval and Permit are emitted
// when an expiring allowance is granted or refreshed; Lockdown revokes every
// allowance for the (owner, token, spender) tuples it lists.
var (
	TopicPermit2Approval = token.EventTopic("Approval(address,address,address,uint160,uint48)")
	TopicPermit2Permit   = token.EventTopic("Permit(address,address,address,uint160,uint48,uint48)")
	TopicPermit2Lockdown = token.EventTopic("Lockdown(address,address,address)")
)

// Permit2Event is one decoded registry event. Amount is zero for Lockdown.
type Permit2Event struct {
	Token      common.Address
	Spender    common.Address
	Amount     *big.Int
	Expiration uint64
	Log        chain.Log
}

// ParsePermit2Log decodes a registry log into a Permit2Event. Returns
// ok=false for logs that are not Approval/Permit/Lockdown or are malformed.
func ParsePermit2Log(l chain.Log) (Permit2Event, bool) {
	if len(l.Topics) < 2 {
		return Permit2Event{}, false
	}

	switch l.Topics[0] {
	case TopicPermit2Lockdown:
		// Lockdown indexes only the owner; token and spender are
		// ABI-encoded in the data payload as two 32-byte words.
		if len(l.Data) < 64 {
			return Permit2Event{}, false
		}
		return Permit2Event{
			Token:   common.BytesToAddress(l.Data[:32]),
			Spender: common.BytesToAddress(l.Data[32:64]),
			Amount:  big.NewInt(0),
			Log:     l,
		}, true
	case TopicPermit2Approval, TopicPermit2Permit:
		// Owner, token and spender are indexed; data: amount (uint160 in
		// a 32-byte word), expiration (uint48), plus a trailing nonce
		// word for Permit.
		if len(l.Topics) < 4 || len(l.Data) < 64 {
			return Permit2Event{}, false
		}
		return Permit2Event{
			Token:      common.BytesToAddress(l.Topics[2].Bytes()),
			Spender:    common.BytesToAddress(l.Topics[3].Bytes()),
			Amount:     new(big.Int).SetBytes(l.Data[:32]),
			Expiration: new(big.Int).SetBytes(l.Data[32:64]).Uint64(),
			Log:        l,
		}, true
	}
	return Permit2Event{}, false
}
