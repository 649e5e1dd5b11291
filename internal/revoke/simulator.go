package revoke

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/revokehq/revokectl/internal/chain"
)

// ChainSimulator preflights clauses through eth_call on a live endpoint.
type ChainSimulator struct {
	Client *chain.EVMClient
}

// Simulate runs the clause as a read-only call from the owner's address.
// A revert surfaces as an error carrying the node's revert reason.
func (s ChainSimulator) Simulate(ctx context.Context, from common.Address, c Clause) error {
	ok, reason, err := s.Client.SimulateCall(ctx, from.Hex(), c.To.Hex(), "0x"+hex.EncodeToString(c.Data), c.Value)
	if err != nil {
		return err
	}
	if !ok {
		if reason == "" {
			reason = "execution reverted"
		}
		return errors.New(reason)
	}
	return nil
}
