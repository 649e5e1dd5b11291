package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/revokehq/revokectl/internal/allowance"
	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/revoke"
	"github.com/revokehq/revokectl/internal/ui"
	"github.com/revokehq/revokectl/internal/wallet"
)

var (
	revokeWallet    string
	revokeNetwork   string
	revokeFromBlock string
	revokeSpender   string
	revokeContract  string
	revokeBatch     bool
	revokeYes       bool
)

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke selected token allowances",
	Long: `Discover the signing wallet's active allowances, pick which to revoke,
and submit the revocations. Every clause is simulated first; anything that
would revert is reported and skipped. With --batch, chains that support
multi-clause transactions get the whole selection in as few transactions
as possible.

Press Ctrl-C during a run to stop: in-flight transactions finish, the rest
are left untouched.

Examples:
  revokectl revoke --wallet myWallet
  revokectl revoke --wallet myWallet --spender 0xRouter --yes
  revokectl revoke --wallet myWallet --network vechain --batch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := loadSigningWallet(revokeWallet)
		if err != nil {
			return err
		}
		c, rpcURL, err := resolveChain(revokeNetwork)
		if err != nil {
			return err
		}

		spin := ui.NewSpinner(fmt.Sprintf("Scanning %s on %s...", ui.TruncateAddr(w.Address), c.DisplayName))
		spin.Start()
		found, soft, err := discoverAllowances(cmd.Context(), rpcURL, c.ChainID, w.Address, revokeFromBlock, "latest")
		spin.Stop()
		if err != nil {
			return err
		}
		for _, e := range soft {
			fmt.Println(ui.Warn(fmt.Sprintf("skipped %s: %v", ui.TruncateAddr(e.Contract.Hex()), e.Err)))
		}

		selected := filterRevocable(found)
		if len(selected) == 0 {
			fmt.Println(ui.Success("Nothing to revoke."))
			return nil
		}

		if revokeSpender == "" && revokeContract == "" && !revokeYes {
			selected, err = pickAllowances(selected)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				fmt.Println(ui.Meta("Nothing selected."))
				return nil
			}
		}

		if !revokeYes && !ui.ConfirmDanger(fmt.Sprintf("Revoke %d allowance(s) on %s?", len(selected), c.DisplayName)) {
			fmt.Println(ui.Meta("Aborted."))
			return nil
		}

		return runRevocation(cmd, c, rpcURL, w, selected)
	},
}

// filterRevocable keeps active allowances and applies the --spender and
// --contract filters.
func filterRevocable(list []allowance.Allowance) []allowance.Allowance {
	var out []allowance.Allowance
	for _, a := range list {
		if !a.IsActive() {
			continue
		}
		if revokeSpender != "" && !strings.EqualFold(a.Spender.Hex(), revokeSpender) {
			continue
		}
		if revokeContract != "" && !strings.EqualFold(a.Contract.Hex(), revokeContract) {
			continue
		}
		out = append(out, a)
	}
	sortAllowances(out)
	return out
}

// pickAllowances runs the interactive multi-select over active allowances.
func pickAllowances(list []allowance.Allowance) ([]allowance.Allowance, error) {
	byKey := make(map[string]allowance.Allowance, len(list))
	items := make([]ui.MultiPickItem, 0, len(list))
	for _, a := range list {
		byKey[a.Key()] = a
		items = append(items, ui.MultiPickItem{
			Label:    fmt.Sprintf("%-12s %s", a.Symbol, describeAmount(a)),
			SubLabel: describeKind(a) + " → " + ui.TruncateAddr(a.Spender.Hex()),
			Value:    a.Key(),
			Danger:   a.Unlimited() || a.ForAll,
		})
	}

	keys, err := ui.MultiPick("Select allowances to revoke", items)
	if err != nil {
		return nil, err
	}
	out := make([]allowance.Allowance, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out, nil
}

// runRevocation wires the orchestrator and streams per-allowance progress
// to the terminal until the run finishes.
func runRevocation(cmd *cobra.Command, c *chain.Chain, rpcURL string, w *wallet.Wallet, selected []allowance.Allowance) error {
	client := chain.NewEVMClient(rpcURL)
	signer := wallet.NewSigner(w, wallet.DefaultKeystore())
	sender := revoke.NewWalletSender(client, signer, c.ChainID)

	store := revoke.NewStatusStore()
	labels := make(map[string]string, len(selected))
	keys := make([]string, 0, len(selected))
	for _, a := range selected {
		labels[a.Key()] = fmt.Sprintf("%s %s → %s", a.Symbol, describeKind(a), ui.TruncateAddr(a.Spender.Hex()))
		keys = append(keys, a.Key())
	}
	store.Init(keys)
	store.Subscribe(func(key string, rec revoke.Record) {
		fmt.Println(ui.ProgressLine(labels[key], string(rec.Status), rec.TxHash, rec.Err))
	})

	opts := revoke.DefaultOptions()
	if c.MaxClauses > 0 {
		opts.MaxClauses = min(opts.MaxClauses, c.MaxClauses)
	}
	orch := revoke.NewOrchestrator(store, sender, revoke.ChainSimulator{Client: client}, nil, opts, logger)

	// Ctrl-C pauses the run instead of killing in-flight transactions.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println(ui.Warn("stopping after in-flight transactions..."))
		orch.Pause()
	}()

	multiClause := revokeBatch && c.MaxClauses > 1
	logger.Info("starting revocation run",
		zap.Int("allowances", len(selected)),
		zap.Bool("multi_clause", multiClause),
		zap.String("chain", c.Name))

	if err := orch.Revoke(cmd.Context(), selected, multiClause); err != nil {
		return err
	}

	confirmed, reverted, skipped := 0, 0, 0
	for _, k := range keys {
		switch store.Get(k).Status {
		case revoke.StatusConfirmed:
			confirmed++
		case revoke.StatusReverted:
			reverted++
		default:
			skipped++
		}
	}
	fmt.Println()
	switch {
	case confirmed == len(keys):
		fmt.Println(ui.Success(fmt.Sprintf("All %d allowance(s) revoked.", confirmed)))
	case reverted > 0:
		fmt.Println(ui.Warn(fmt.Sprintf("%d revoked, %d failed, %d untouched.", confirmed, reverted, skipped)))
	default:
		fmt.Println(ui.Meta(fmt.Sprintf("%d revoked, %d untouched.", confirmed, skipped)))
	}
	return nil
}

func init() {
	revokeCmd.Flags().StringVarP(&revokeWallet, "wallet", "w", "", "signing wallet name (default: default wallet)")
	revokeCmd.Flags().StringVarP(&revokeNetwork, "network", "n", "", "chain name (default: configured chain)")
	revokeCmd.Flags().StringVar(&revokeFromBlock, "from-block", "earliest", "start of the scanned block range")
	revokeCmd.Flags().StringVar(&revokeSpender, "spender", "", "revoke only allowances granted to this spender")
	revokeCmd.Flags().StringVar(&revokeContract, "contract", "", "revoke only allowances on this token contract")
	revokeCmd.Flags().BoolVar(&revokeBatch, "batch", false, "use multi-clause transactions where the chain supports them")
	revokeCmd.Flags().BoolVarP(&revokeYes, "yes", "y", false, "skip selection and confirmation, revoke everything matched")
}
