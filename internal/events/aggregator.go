// Package events collects the raw on-chain event streams an address's
// allowance state is derived from.
package events

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/token"
)

// LogFetcher is the consumed log-source collaborator. It must return the
// complete set of logs matching the filter or fail — callers rely on there
// being no silent truncation. Caching and backoff are the fetcher's problem,
// not the aggregator's.
type LogFetcher interface {
	FetchLogs(ctx context.Context, f chain.Filter) ([]chain.Log, error)
}

// Bundle is the per-address event snapshot the deriver reduces. Each stream
// is sorted ascending by (block, txIndex, logIndex).
type Bundle struct {
	TransferIn      []chain.Log
	TransferOut     []chain.Log
	Approval        []chain.Log
	ApprovalForAll  []chain.Log
	Permit2Approval []chain.Log
}

// Aggregator merges the five log streams for an owner address.
type Aggregator struct {
	fetcher LogFetcher
	log     *zap.Logger
}

// NewAggregator creates an Aggregator. A nil logger disables logging.
func NewAggregator(fetcher LogFetcher, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{fetcher: fetcher, log: log}
}

// Aggregate fetches the five streams concurrently and fails fast: any single
// failure fails the whole snapshot. A partial result would silently hide
// active allowances, which is a safety problem, not a degradation.
func (a *Aggregator) Aggregate(ctx context.Context, owner common.Address, fromBlock, toBlock string) (*Bundle, error) {
	ownerTopic := token.AddressTopic(owner)
	transferTopic := TopicTransfer.Hex()
	approvalTopic := TopicApproval.Hex()
	approvalForAllTopic := TopicApprovalForAll.Hex()

	bundle := &Bundle{}
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(name string, f chain.Filter, dst *[]chain.Log) func() error {
		return func() error {
			logs, err := a.fetcher.FetchLogs(gctx, f)
			if err != nil {
				return fmt.Errorf("fetching %s logs: %w", name, err)
			}
			a.log.Debug("fetched event stream",
				zap.String("stream", name),
				zap.Int("count", len(logs)))
			*dst = logs
			return nil
		}
	}

	g.Go(fetch("transfer-in", chain.Filter{
		Topics:    []*string{&transferTopic, nil, &ownerTopic},
		FromBlock: fromBlock, ToBlock: toBlock,
	}, &bundle.TransferIn))

	g.Go(fetch("transfer-out", chain.Filter{
		Topics:    []*string{&transferTopic, &ownerTopic},
		FromBlock: fromBlock, ToBlock: toBlock,
	}, &bundle.TransferOut))

	g.Go(fetch("approval", chain.Filter{
		Topics:    []*string{&approvalTopic, &ownerTopic},
		FromBlock: fromBlock, ToBlock: toBlock,
	}, &bundle.Approval))

	g.Go(fetch("approval-for-all", chain.Filter{
		Topics:    []*string{&approvalForAllTopic, &ownerTopic},
		FromBlock: fromBlock, ToBlock: toBlock,
	}, &bundle.ApprovalForAll))

	g.Go(func() error {
		logs, err := a.fetchPermit2(gctx, ownerTopic, fromBlock, toBlock)
		if err != nil {
			return err
		}
		bundle.Permit2Approval = logs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// fetchPermit2 queries the three registry event kinds for the owner and
// merges them into one ordered stream.
func (a *Aggregator) fetchPermit2(ctx context.Context, ownerTopic, fromBlock, toBlock string) ([]chain.Log, error) {
	var merged []chain.Log
	for _, t := range []common.Hash{TopicPermit2Approval, TopicPermit2Permit, TopicPermit2Lockdown} {
		topic0 := t.Hex()
		logs, err := a.fetcher.FetchLogs(ctx, chain.Filter{
			Address:   Permit2Address.Hex(),
			Topics:    []*string{&topic0, &ownerTopic},
			FromBlock: fromBlock, ToBlock: toBlock,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching permit2 logs: %w", err)
		}
		merged = append(merged, logs...)
	}
	chain.SortLogs(merged)
	a.log.Debug("fetched event stream",
		zap.String("stream", "permit2"),
		zap.Int("count", len(merged)))
	return merged, nil
}

// Re-exported topics so callers need only one import for filter building.
var (
	TopicTransfer       = token.TopicTransfer
	TopicApproval       = token.TopicApproval
	TopicApprovalForAll = token.TopicApprovalForAll
)
