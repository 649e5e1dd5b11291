package revoke

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/config"
	"github.com/revokehq/revokectl/internal/wallet"
)

// Receipt is the confirmation detail handed back to the orchestrator once a
// revocation transaction is mined.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// Submitted is an in-flight transaction: its hash is known, confirmation is
// not. Wait blocks until the transaction is mined, reverted, or the polling
// budget runs out.
type Submitted struct {
	Hash string
	Wait func(ctx context.Context) (*Receipt, error)
}

// Sender broadcasts revocation transactions. MaxClauses reports how many
// clauses one transaction may carry; plain EVM senders report 1.
type Sender interface {
	MaxClauses() int
	Send(ctx context.Context, clauses []Clause) (*Submitted, error)
}

// WalletSender signs and broadcasts single-clause transactions with a local
// wallet key.
type WalletSender struct {
	client       *chain.EVMClient
	signer       *wallet.Signer
	chainID      int64
	pollInterval time.Duration
	maxAttempts  uint64
}

// NewWalletSender creates a sender for the given chain and signing wallet.
func NewWalletSender(client *chain.EVMClient, signer *wallet.Signer, chainID int64) *WalletSender {
	return &WalletSender{
		client:       client,
		signer:       signer,
		chainID:      chainID,
		pollInterval: config.ConfirmPollInterval,
		maxAttempts:  config.ConfirmMaxAttempts,
	}
}

// MaxClauses is 1: an EVM transaction holds exactly one call.
func (s *WalletSender) MaxClauses() int { return 1 }

// Send signs and broadcasts one clause as an EIP-1559 transaction.
func (s *WalletSender) Send(ctx context.Context, clauses []Clause) (*Submitted, error) {
	if len(clauses) != 1 {
		return nil, fmt.Errorf("evm sender takes exactly one clause, got %d", len(clauses))
	}
	c := clauses[0]
	from := s.signer.Address()
	calldata := "0x" + hex.EncodeToString(c.Data)

	nonce, err := s.client.GetPendingNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	gasPrice, err := s.client.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gas price: %w", err)
	}

	gasLimit, err := s.client.EstimateGas(ctx, from, c.To.Hex(), calldata, c.Value)
	if err != nil {
		gasLimit = 60000 // approve-shaped calls fit comfortably
	}

	// Tip at the current price, cap at double it.
	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(s.chainID),
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &c.To,
		Value:     c.Value,
		Data:      c.Data,
	})

	raw, err := s.signer.SignTx(tx, big.NewInt(s.chainID))
	if err != nil {
		return nil, err
	}

	hash, err := s.client.SendRawTransaction(ctx, "0x"+hex.EncodeToString(raw))
	if err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}

	return &Submitted{
		Hash: hash,
		Wait: func(ctx context.Context) (*Receipt, error) {
			receipt, err := s.client.WaitForReceipt(ctx, hash, s.pollInterval, s.maxAttempts)
			if err != nil {
				return nil, err
			}
			return &Receipt{TxHash: hash, BlockNumber: receipt.BlockNumber}, nil
		},
	}, nil
}
