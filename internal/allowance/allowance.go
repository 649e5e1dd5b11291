// Package allowance models the outstanding spending permissions of an
// address and derives them from raw event logs.
package allowance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/token"
)

// TimeLog records which log produced the current state of an allowance.
type TimeLog struct {
	TxHash      common.Hash
	BlockNumber uint64
	Timestamp   uint64 // 0 when the node reported none
}

// Allowance is one standing permission granted by Owner to Spender on a
// token contract. For a fixed identity tuple (chain, contract, spender,
// tokenID) at most one Allowance exists; later logs supersede earlier ones.
// A revoked entry stays around with a zero amount (or Approved=false) so the
// caller can show "revoked" instead of the row vanishing.
type Allowance struct {
	ChainID  int64
	Contract common.Address
	Owner    common.Address
	Spender  common.Address
	Standard token.Standard

	Symbol   string
	Decimals int
	Balance  *big.Int

	Amount     *big.Int // fungible allowance; nil for NFT grants
	TokenID    *big.Int // set only for single-NFT approvals
	ForAll     bool     // collection-wide grant (ApprovalForAll)
	Approved   bool     // current state of a for-all grant
	Permit2    bool     // granted through the Permit2 registry
	Expiration uint64   // unix seconds, Permit2 only

	LastUpdated TimeLog
}

// Key serializes the identity tuple. It is the status-store key shared by the
// single and batch revoke paths.
func (a Allowance) Key() string {
	key := fmt.Sprintf("%d:%s:%s", a.ChainID, a.Contract.Hex(), a.Spender.Hex())
	if a.TokenID != nil {
		key += ":" + a.TokenID.String()
	}
	if a.Permit2 {
		key += ":permit2"
	}
	return key
}

// IsActive reports whether the permission still lets the spender move
// anything. Inactive entries are retained records of past grants.
func (a Allowance) IsActive() bool {
	if a.ForAll {
		return a.Approved
	}
	if a.TokenID != nil {
		return a.Spender != (common.Address{})
	}
	return a.Amount != nil && a.Amount.Sign() > 0
}

// Unlimited reports whether a fungible allowance is effectively infinite
// (the max-uint256 sentinel wallets use for "unlimited").
func (a Allowance) Unlimited() bool {
	if a.Amount == nil {
		return false
	}
	return a.Amount.BitLen() >= 255
}

// NewTimeLog builds a TimeLog from the log that defined the current state.
func NewTimeLog(l chain.Log) TimeLog {
	return TimeLog{
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		Timestamp:   l.Timestamp,
	}
}

// Patch is a confirmed state change applied back onto a displayed allowance,
// e.g. zeroing the amount after a revocation lands.
type Patch struct {
	Amount      *big.Int
	Approved    *bool
	LastUpdated *TimeLog
}

// Apply merges the patch into the allowance in place.
func (p Patch) Apply(a *Allowance) {
	if p.Amount != nil {
		a.Amount = p.Amount
	}
	if p.Approved != nil {
		a.Approved = *p.Approved
	}
	if p.LastUpdated != nil {
		a.LastUpdated = *p.LastUpdated
	}
}
