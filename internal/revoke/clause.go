package revoke

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/revokehq/revokectl/internal/allowance"
	"github.com/revokehq/revokectl/internal/events"
)

// Clause is one contract call inside a revocation transaction. On plain EVM
// chains a transaction carries exactly one clause; chains with native batch
// transactions carry several.
type Clause struct {
	To      common.Address
	Value   *big.Int
	Data    []byte
	Comment string // human-readable label shown in wallet prompts and logs
}

// BuildRevokeClause encodes the call that zeroes out one allowance:
//
//	fungible        approve(spender, 0) on the token
//	single NFT      approve(0x0, tokenId) on the collection
//	collection-wide setApprovalForAll(spender, false) on the collection
//	permit2         approve(token, spender, 0, 0) on the registry
func BuildRevokeClause(a allowance.Allowance) (Clause, error) {
	switch {
	case a.Permit2:
		data := funcSelector("approve(address,address,uint160,uint48)")
		data = append(data, addressWord(a.Contract)...)
		data = append(data, addressWord(a.Spender)...)
		data = append(data, make([]byte, 64)...) // amount 0, expiration 0
		return Clause{
			To:      events.Permit2Address,
			Value:   big.NewInt(0),
			Data:    data,
			Comment: fmt.Sprintf("Revoke Permit2 %s allowance for %s", a.Symbol, a.Spender.Hex()),
		}, nil

	case a.ForAll:
		data := funcSelector("setApprovalForAll(address,bool)")
		data = append(data, addressWord(a.Spender)...)
		data = append(data, make([]byte, 32)...) // false
		return Clause{
			To:      a.Contract,
			Value:   big.NewInt(0),
			Data:    data,
			Comment: fmt.Sprintf("Revoke %s operator approval for %s", a.Symbol, a.Spender.Hex()),
		}, nil

	case a.TokenID != nil:
		data := funcSelector("approve(address,uint256)")
		data = append(data, addressWord(common.Address{})...)
		data = append(data, uintWord(a.TokenID)...)
		return Clause{
			To:      a.Contract,
			Value:   big.NewInt(0),
			Data:    data,
			Comment: fmt.Sprintf("Revoke %s approval for token #%s", a.Symbol, a.TokenID.String()),
		}, nil

	case a.Amount != nil:
		data := funcSelector("approve(address,uint256)")
		data = append(data, addressWord(a.Spender)...)
		data = append(data, make([]byte, 32)...) // amount 0
		return Clause{
			To:      a.Contract,
			Value:   big.NewInt(0),
			Data:    data,
			Comment: fmt.Sprintf("Revoke %s allowance for %s", a.Symbol, a.Spender.Hex()),
		}, nil
	}

	return Clause{}, fmt.Errorf("allowance %s has no revocable state", a.Key())
}

// funcSelector returns the 4-byte function selector for a canonical
// signature.
func funcSelector(signature string) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(signature))
	return hash.Sum(nil)[:4]
}

// addressWord left-pads an address into a 32-byte argument word.
func addressWord(addr common.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return word
}

// uintWord right-aligns an unsigned integer into a 32-byte argument word.
func uintWord(n *big.Int) []byte {
	word := make([]byte, 32)
	n.FillBytes(word)
	return word
}
