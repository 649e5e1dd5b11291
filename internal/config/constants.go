package config

import "time"

// Network and orchestration constants.
const (
	// RPCTimeout bounds any single JSON-RPC round trip.
	RPCTimeout = 15 * time.Second

	// ConfirmPollInterval and ConfirmMaxAttempts bound receipt polling:
	// 20 polls at 3s gives a transaction one minute to land before the
	// wait is reported as a timeout.
	ConfirmPollInterval = 3 * time.Second
	ConfirmMaxAttempts  = 20

	// SimulationConcurrency caps parallel eth_call simulations so public
	// RPC endpoints do not rate-limit the preflight pass.
	SimulationConcurrency = 3

	// DefaultMaxClauses caps one multi-clause batch regardless of what
	// the chain allows.
	DefaultMaxClauses = 20
)

// Defaults for the on-disk config file.
const (
	DefaultChain = "ethereum"
	DefaultMode  = "mainnet"
)
