// check-endpoints: probes every RPC endpoint in the chain registry (mainnet
// and testnet) in parallel and prints a liveness summary table.
//
// Run from the module root:
//
//	go run ./scripts/check-endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/revokehq/revokectl/internal/chain"
)

const probeTimeout = 12 * time.Second

type result struct {
	chain   string
	mode    string
	rpc     string
	head    uint64
	latency time.Duration
	err     string
}

func main() {
	reg := chain.NewRegistry()

	var (
		mu      sync.Mutex
		results []result
	)

	pool := pond.NewPool(8)
	for _, c := range reg.All() {
		for _, mode := range []string{"mainnet", "testnet"} {
			for _, rpcURL := range c.RPCs(mode) {
				c, mode, rpcURL := c, mode, rpcURL
				pool.Submit(func() {
					res := probe(c.Name, mode, rpcURL)
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				})
			}
		}
	}
	pool.StopAndWait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].chain != results[j].chain {
			return results[i].chain < results[j].chain
		}
		if results[i].mode != results[j].mode {
			return results[i].mode < results[j].mode
		}
		return results[i].rpc < results[j].rpc
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tMODE\tRPC\tHEAD\tLATENCY\tSTATUS")
	failures := 0
	for _, r := range results {
		if r.err != "" {
			failures++
			fmt.Fprintf(w, "%s\t%s\t%s\t-\t-\tFAIL: %s\n", r.chain, r.mode, r.rpc, r.err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\tok\n", r.chain, r.mode, r.rpc, r.head, r.latency.Round(time.Millisecond))
	}
	w.Flush()

	fmt.Printf("\n%d endpoint(s) checked, %d failing\n", len(results), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func probe(chainName, mode, rpcURL string) result {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := chain.NewEVMClient(rpcURL)
	start := time.Now()
	head, err := client.GetBlockNumber(ctx)
	res := result{chain: chainName, mode: mode, rpc: rpcURL, latency: time.Since(start)}
	if err != nil {
		res.err = err.Error()
		return res
	}
	res.head = head
	return res
}
