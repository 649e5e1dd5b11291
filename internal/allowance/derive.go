package allowance

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/events"
	"github.com/revokehq/revokectl/internal/token"
)

// ContractError is a soft failure scoped to one contract: its entries are
// excluded from the result but the rest of the derivation stands.
type ContractError struct {
	Contract common.Address
	Err      error
}

func (e ContractError) Error() string {
	return e.Contract.Hex() + ": " + e.Err.Error()
}

// Deriver reduces an event bundle into the deduplicated allowance set.
type Deriver struct {
	reader token.Reader
	log    *zap.Logger
}

// NewDeriver creates a Deriver. A nil logger disables logging.
func NewDeriver(reader token.Reader, log *zap.Logger) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deriver{reader: reader, log: log}
}

// Derive reduces the bundle plus live contract reads into one Allowance per
// identity tuple. Metadata/balance read failures exclude only the affected
// contract and come back as soft errors; spam contracts are dropped
// silently. The result carries no ordering guarantee beyond per-tuple
// uniqueness.
func (d *Deriver) Derive(ctx context.Context, bundle *events.Bundle, chainID int64, owner common.Address) ([]Allowance, []ContractError, error) {
	if bundle == nil {
		return nil, nil, errors.New("nil event bundle")
	}

	contracts := classifyContracts(bundle)

	byContract := make(map[common.Address][]Allowance)
	for addr, std := range contracts {
		switch std {
		case token.StandardERC20:
			byContract[addr] = reduceErc20(bundle, addr, chainID, owner)
		case token.StandardERC721:
			byContract[addr] = reduceErc721(bundle, addr, chainID, owner)
		}
	}
	for addr, entries := range reducePermit2(bundle, chainID, owner) {
		byContract[addr] = append(byContract[addr], entries...)
	}

	// Deterministic contract order keeps enrichment failures reproducible.
	addrs := make([]common.Address, 0, len(byContract))
	for addr := range byContract {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})

	var result []Allowance
	var soft []ContractError
	for _, addr := range addrs {
		entries := byContract[addr]
		if len(entries) == 0 {
			continue
		}
		std := contracts[addr]
		if std == "" || std == token.StandardUnknown {
			std = token.StandardERC20 // permit2-only contracts are fungible
		}

		enriched, err := d.enrich(ctx, entries, addr, std, owner, bundle)
		if err != nil {
			var spam token.ErrSpamToken
			if errors.As(err, &spam) {
				d.log.Debug("excluding spam contract", zap.String("contract", addr.Hex()))
				continue
			}
			soft = append(soft, ContractError{Contract: addr, Err: err})
			continue
		}
		result = append(result, enriched...)
	}

	return result, soft, nil
}

// classifyContracts collects the distinct contracts seen in approval streams
// and infers each one's standard from any of its logs.
func classifyContracts(bundle *events.Bundle) map[common.Address]token.Standard {
	contracts := make(map[common.Address]token.Standard)
	for _, l := range append(append([]chain.Log{}, bundle.Approval...), bundle.ApprovalForAll...) {
		if std, seen := contracts[l.Address]; seen && std != token.StandardUnknown {
			continue
		}
		contracts[l.Address] = token.Classify(l)
	}
	for addr, std := range contracts {
		if std == token.StandardUnknown {
			delete(contracts, addr)
		}
	}
	return contracts
}

// reduceErc20 folds the approval stream for one fungible contract, last
// write wins per spender. Zero amounts are retained: they supersede earlier
// grants and surface as "revoked".
func reduceErc20(bundle *events.Bundle, addr common.Address, chainID int64, owner common.Address) []Allowance {
	logs := contractLogs(bundle.Approval, addr, 3)
	chain.SortLogs(logs)

	bySpender := make(map[common.Address]Allowance)
	var order []common.Address
	for _, l := range logs {
		spender := common.BytesToAddress(l.Topics[2].Bytes())
		if _, seen := bySpender[spender]; !seen {
			order = append(order, spender)
		}
		bySpender[spender] = Allowance{
			ChainID:     chainID,
			Contract:    addr,
			Owner:       owner,
			Spender:     spender,
			Standard:    token.StandardERC20,
			Amount:      new(big.Int).SetBytes(l.Data),
			LastUpdated: NewTimeLog(l),
		}
	}

	out := make([]Allowance, 0, len(order))
	for _, spender := range order {
		out = append(out, bySpender[spender])
	}
	return out
}

// reduceErc721 folds single-token approvals (keyed by tokenId, cleared by a
// later transfer of that token) and collection-wide grants (keyed by
// spender, false retained as revoked state) independently.
func reduceErc721(bundle *events.Bundle, addr common.Address, chainID int64, owner common.Address) []Allowance {
	var out []Allowance

	// Single-token approvals. An ERC721 Approval replaces any earlier
	// approval for the same tokenId; a Transfer of the token clears it.
	single := contractLogs(bundle.Approval, addr, 4)
	chain.SortLogs(single)

	byToken := make(map[string]chain.Log)
	var tokenOrder []string
	for _, l := range single {
		id := l.Topics[3].Hex()
		if _, seen := byToken[id]; !seen {
			tokenOrder = append(tokenOrder, id)
		}
		byToken[id] = l
	}

	transfers := append(contractLogs(bundle.TransferIn, addr, 4), contractLogs(bundle.TransferOut, addr, 4)...)

	for _, id := range tokenOrder {
		l := byToken[id]
		if transferredAfter(transfers, l) {
			continue // ownership changed, approval is stale
		}
		spender := common.BytesToAddress(l.Topics[2].Bytes())
		if spender == (common.Address{}) {
			continue // approval explicitly cleared
		}
		out = append(out, Allowance{
			ChainID:     chainID,
			Contract:    addr,
			Owner:       owner,
			Spender:     spender,
			Standard:    token.StandardERC721,
			TokenID:     new(big.Int).SetBytes(l.Topics[3].Bytes()),
			LastUpdated: NewTimeLog(l),
		})
	}

	// Collection-wide grants.
	forAll := contractLogs(bundle.ApprovalForAll, addr, 3)
	chain.SortLogs(forAll)

	bySpender := make(map[common.Address]Allowance)
	var spenderOrder []common.Address
	for _, l := range forAll {
		spender := common.BytesToAddress(l.Topics[2].Bytes())
		if _, seen := bySpender[spender]; !seen {
			spenderOrder = append(spenderOrder, spender)
		}
		approved := len(l.Data) == 32 && l.Data[31] == 1
		bySpender[spender] = Allowance{
			ChainID:     chainID,
			Contract:    addr,
			Owner:       owner,
			Spender:     spender,
			Standard:    token.StandardERC721,
			ForAll:      true,
			Approved:    approved,
			LastUpdated: NewTimeLog(l),
		}
	}
	for _, spender := range spenderOrder {
		out = append(out, bySpender[spender])
	}

	return out
}

// reducePermit2 folds the registry stream, last write wins per
// (token, spender). Lockdown zeroes the amount.
func reducePermit2(bundle *events.Bundle, chainID int64, owner common.Address) map[common.Address][]Allowance {
	type key struct {
		token   common.Address
		spender common.Address
	}

	logs := append([]chain.Log{}, bundle.Permit2Approval...)
	chain.SortLogs(logs)

	byKey := make(map[key]Allowance)
	var order []key
	for _, l := range logs {
		ev, ok := events.ParsePermit2Log(l)
		if !ok {
			continue
		}
		k := key{token: ev.Token, spender: ev.Spender}
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = Allowance{
			ChainID:     chainID,
			Contract:    ev.Token,
			Owner:       owner,
			Spender:     ev.Spender,
			Standard:    token.StandardERC20,
			Amount:      ev.Amount,
			Permit2:     true,
			Expiration:  ev.Expiration,
			LastUpdated: NewTimeLog(l),
		}
	}

	out := make(map[common.Address][]Allowance)
	for _, k := range order {
		out[k.token] = append(out[k.token], byKey[k])
	}
	return out
}

// enrich attaches live metadata and the owner's balance to a contract's
// entries. Any read failure excludes the whole contract.
func (d *Deriver) enrich(ctx context.Context, entries []Allowance, addr common.Address, std token.Standard, owner common.Address, bundle *events.Bundle) ([]Allowance, error) {
	meta, err := token.FetchMetadata(ctx, d.reader, addr, std)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if std == token.StandardERC721 {
		// NFT balances fall out of the transfer streams. A read call backs
		// up the count when the range saw no transfers, or when a partial
		// range misses the transfer-in matching an observed transfer-out
		// and the count would go negative.
		in := len(contractLogs(bundle.TransferIn, addr, 4))
		outN := len(contractLogs(bundle.TransferOut, addr, 4))
		if (in == 0 && outN == 0) || outN > in {
			balance, err = token.BalanceOf(ctx, d.reader, addr, owner)
		} else {
			balance = big.NewInt(int64(in - outN))
		}
	} else {
		balance, err = token.BalanceOf(ctx, d.reader, addr, owner)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Allowance, len(entries))
	for i, e := range entries {
		e.Symbol = meta.Symbol
		e.Decimals = meta.Decimals
		e.Balance = balance
		out[i] = e
	}
	return out, nil
}

// contractLogs filters a stream down to one contract's logs with the given
// topic count.
func contractLogs(logs []chain.Log, addr common.Address, topicCount int) []chain.Log {
	var out []chain.Log
	for _, l := range logs {
		if l.Address == addr && len(l.Topics) == topicCount {
			out = append(out, l)
		}
	}
	return out
}

// transferredAfter reports whether any transfer of the approval's tokenId
// happened after the approval in the chain's total event order.
func transferredAfter(transfers []chain.Log, approval chain.Log) bool {
	tokenID := approval.Topics[3]
	for _, t := range transfers {
		if t.Topics[3] == tokenID && approval.Before(t) {
			return true
		}
	}
	return false
}
