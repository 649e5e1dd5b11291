package revoke

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/revokehq/revokectl/internal/allowance"
	"github.com/revokehq/revokectl/internal/config"
)

// ErrRunInProgress is returned when Revoke is called while a previous run is
// still active.
var ErrRunInProgress = errors.New("a revoke run is already in progress")

// Simulator preflights one clause against current chain state. A nil error
// means the clause would execute; a non-nil error carries the revert reason
// or the network failure.
type Simulator interface {
	Simulate(ctx context.Context, from common.Address, c Clause) error
}

// OnUpdate is invoked after a revocation confirms so the caller can patch
// its displayed allowance state.
type OnUpdate func(a allowance.Allowance, p allowance.Patch)

// Options tunes an orchestrator run.
type Options struct {
	MaxClauses            int // batch cap, clamped by the sender's own limit
	SimulationConcurrency int
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		MaxClauses:            config.DefaultMaxClauses,
		SimulationConcurrency: config.SimulationConcurrency,
	}
}

// Orchestrator drives a batch revocation run: simulate every clause, submit
// the survivors in groups, track per-allowance status in the store.
type Orchestrator struct {
	store    *StatusStore
	sender   Sender
	sim      Simulator
	onUpdate OnUpdate
	opts     Options
	log      *zap.Logger

	running atomic.Bool
	paused  atomic.Bool
}

// NewOrchestrator wires an orchestrator. onUpdate and log may be nil.
func NewOrchestrator(store *StatusStore, sender Sender, sim Simulator, onUpdate OnUpdate, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if onUpdate == nil {
		onUpdate = func(allowance.Allowance, allowance.Patch) {}
	}
	if opts.MaxClauses < 1 {
		opts.MaxClauses = 1
	}
	if opts.SimulationConcurrency < 1 {
		opts.SimulationConcurrency = 1
	}
	return &Orchestrator{
		store:    store,
		sender:   sender,
		sim:      sim,
		onUpdate: onUpdate,
		opts:     opts,
		log:      log,
	}
}

// Pause requests cooperative cancellation: in-flight transactions finish,
// unsubmitted allowances reset to not_started.
func (o *Orchestrator) Pause() {
	o.paused.Store(true)
}

// IsRevoking reports whether a run is active.
func (o *Orchestrator) IsRevoking() bool {
	return o.running.Load()
}

// IsAllConfirmed reports whether every given allowance has landed.
func (o *Orchestrator) IsAllConfirmed(allowances []allowance.Allowance) bool {
	keys := make([]string, len(allowances))
	for i, a := range allowances {
		keys[i] = a.Key()
	}
	return o.store.AllConfirmed(keys)
}

type revokeItem struct {
	a      allowance.Allowance
	clause Clause
}

// Revoke runs the full batch pipeline over the selected allowances. With
// multiClause set, survivors are grouped into batches up to the sender's
// clause limit and submitted sequentially; otherwise each survivor gets its
// own transaction, submitted in small concurrent waves.
//
// The returned error covers run-level failures only. Per-allowance outcomes
// land in the status store.
func (o *Orchestrator) Revoke(ctx context.Context, allowances []allowance.Allowance, multiClause bool) error {
	if len(allowances) == 0 {
		return nil
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer o.running.Store(false)
	o.paused.Store(false)

	// Mark everything pending before any network work so the caller's view
	// flips immediately.
	items := make([]revokeItem, 0, len(allowances))
	for _, a := range allowances {
		clause, err := BuildRevokeClause(a)
		if err != nil {
			o.store.Set(a.Key(), Record{Status: StatusReverted, Err: err.Error()}, true)
			continue
		}
		o.store.Set(a.Key(), Record{Status: StatusPending}, true)
		items = append(items, revokeItem{a: a, clause: clause})
	}

	survivors := o.simulate(ctx, items)
	if len(survivors) == 0 {
		return nil
	}

	groupSize := 1
	if multiClause {
		groupSize = min(o.opts.MaxClauses, o.sender.MaxClauses())
		if groupSize < 1 {
			groupSize = 1
		}
	}

	if groupSize > 1 {
		o.runBatched(ctx, survivors, groupSize)
	} else {
		o.runIndividual(ctx, survivors)
	}
	return nil
}

// simulate preflights every clause concurrently. Failures are marked
// reverted with the simulation's revert reason and dropped from the run.
func (o *Orchestrator) simulate(ctx context.Context, items []revokeItem) []revokeItem {
	results := make([]error, len(items))
	pool := pond.NewPool(o.opts.SimulationConcurrency)
	for i, it := range items {
		pool.Submit(func() {
			results[i] = o.sim.Simulate(ctx, it.a.Owner, it.clause)
		})
	}
	pool.StopAndWait()

	survivors := make([]revokeItem, 0, len(items))
	for i, it := range items {
		if err := results[i]; err != nil {
			o.log.Warn("simulation failed",
				zap.String("allowance", it.a.Key()),
				zap.Error(err))
			o.store.Set(it.a.Key(), Record{Status: StatusReverted, Err: err.Error()}, true)
			continue
		}
		survivors = append(survivors, it)
	}
	return survivors
}

// runBatched submits survivors in sequential multi-clause groups. A stop
// request between groups resets everything not yet submitted.
func (o *Orchestrator) runBatched(ctx context.Context, items []revokeItem, groupSize int) {
	for start := 0; start < len(items); start += groupSize {
		if o.stopped(ctx) {
			o.resetRemaining(items[start:])
			return
		}
		end := min(start+groupSize, len(items))
		o.submitGroup(ctx, items[start:end])
	}
}

// runIndividual submits one transaction per survivor in small concurrent
// waves so independent revocations overlap without flooding the endpoint.
func (o *Orchestrator) runIndividual(ctx context.Context, items []revokeItem) {
	waveSize := o.opts.SimulationConcurrency
	for start := 0; start < len(items); start += waveSize {
		if o.stopped(ctx) {
			o.resetRemaining(items[start:])
			return
		}
		end := min(start+waveSize, len(items))
		pool := pond.NewPool(waveSize)
		for _, it := range items[start:end] {
			pool.Submit(func() {
				o.submitGroup(ctx, []revokeItem{it})
			})
		}
		pool.StopAndWait()
	}
}

// submitGroup sends one transaction covering the group and waits for its
// confirmation. Every allowance in the group shares the transaction's fate.
func (o *Orchestrator) submitGroup(ctx context.Context, group []revokeItem) {
	clauses := make([]Clause, len(group))
	for i, it := range group {
		clauses[i] = it.clause
	}

	sub, err := o.sender.Send(ctx, clauses)
	if err != nil {
		if isUserRejection(err) || ctx.Err() != nil {
			// The user declined in the wallet (or the run was cancelled):
			// nothing was broadcast, the allowances are untouched.
			o.resetRemaining(group)
			return
		}
		o.log.Error("broadcast failed", zap.Int("clauses", len(group)), zap.Error(err))
		for _, it := range group {
			o.store.Set(it.a.Key(), Record{Status: StatusReverted, Err: err.Error()}, true)
		}
		return
	}

	for _, it := range group {
		o.store.Set(it.a.Key(), Record{Status: StatusPending, TxHash: sub.Hash}, true)
	}
	o.log.Info("transaction submitted",
		zap.String("hash", sub.Hash),
		zap.Int("clauses", len(group)))

	receipt, err := sub.Wait(ctx)
	if err != nil {
		for _, it := range group {
			o.store.Set(it.a.Key(), Record{Status: StatusReverted, TxHash: sub.Hash, Err: err.Error()}, true)
		}
		return
	}

	now := uint64(time.Now().Unix())
	for _, it := range group {
		o.store.Set(it.a.Key(), Record{Status: StatusConfirmed, TxHash: sub.Hash}, true)

		patch := allowance.Patch{
			Amount: big.NewInt(0),
			LastUpdated: &allowance.TimeLog{
				TxHash:      common.HexToHash(receipt.TxHash),
				BlockNumber: receipt.BlockNumber,
				Timestamp:   now,
			},
		}
		if it.a.ForAll {
			revoked := false
			patch.Approved = &revoked
		}
		o.onUpdate(it.a, patch)
	}
}

func (o *Orchestrator) stopped(ctx context.Context) bool {
	return o.paused.Load() || ctx.Err() != nil
}

// resetRemaining returns unsubmitted allowances to not_started so a later
// run can retry them cleanly.
func (o *Orchestrator) resetRemaining(items []revokeItem) {
	for _, it := range items {
		o.store.Set(it.a.Key(), Record{Status: StatusNotStarted}, true)
	}
}

// isUserRejection matches the wallet-declined error shapes so a "no" in the
// signing prompt is never recorded as an on-chain failure.
func isUserRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied")
}
