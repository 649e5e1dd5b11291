package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/revokehq/revokectl/internal/allowance"
	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/events"
	"github.com/revokehq/revokectl/internal/ui"
)

var (
	allowancesWallet    string
	allowancesNetwork   string
	allowancesFromBlock string
	allowancesToBlock   string
	allowancesAll       bool
)

var allowancesCmd = &cobra.Command{
	Use:   "allowances",
	Short: "Discover outstanding token allowances for an address",
	Long: `Scan an address's event history and list every spender that can still
move its tokens: ERC-20 allowances, ERC-721 approvals (single token and
collection-wide), and Permit2 registry grants.

Examples:
  revokectl allowances --wallet 0xOwner
  revokectl allowances --wallet myWallet --network polygon --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := resolveOwner(allowancesWallet)
		if err != nil {
			return err
		}
		c, rpcURL, err := resolveChain(allowancesNetwork)
		if err != nil {
			return err
		}

		spin := ui.NewSpinner(fmt.Sprintf("Scanning %s on %s...", ui.TruncateAddr(owner), c.DisplayName))
		spin.Start()

		allowances, soft, err := discoverAllowances(cmd.Context(), rpcURL, c.ChainID, owner, allowancesFromBlock, allowancesToBlock)
		spin.Stop()
		if err != nil {
			return err
		}

		shown := allowances
		if !allowancesAll {
			shown = shown[:0:0]
			for _, a := range allowances {
				if a.IsActive() {
					shown = append(shown, a)
				}
			}
		}
		sortAllowances(shown)

		if len(shown) == 0 {
			fmt.Println(ui.Success(fmt.Sprintf("No outstanding allowances for %s", ui.TruncateAddr(owner))))
		} else {
			fmt.Println(renderAllowanceTable(shown))
			fmt.Println(ui.Meta(fmt.Sprintf("  %d allowance(s) on %s (%s)", len(shown), c.DisplayName, cfg.Mode)))
		}

		for _, e := range soft {
			fmt.Println(ui.Warn(fmt.Sprintf("skipped %s: %v", ui.TruncateAddr(e.Contract.Hex()), e.Err)))
		}
		return nil
	},
}

// discoverAllowances runs the full discovery pipeline: aggregate the event
// streams, then derive and enrich the allowance set.
func discoverAllowances(ctx context.Context, rpcURL string, chainID int64, owner, fromBlock, toBlock string) ([]allowance.Allowance, []allowance.ContractError, error) {
	client := chain.NewEVMClient(rpcURL)
	agg := events.NewAggregator(client, logger)

	bundle, err := agg.Aggregate(ctx, common.HexToAddress(owner), fromBlock, toBlock)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching events: %w", err)
	}

	deriver := allowance.NewDeriver(client, logger)
	return deriver.Derive(ctx, bundle, chainID, common.HexToAddress(owner))
}

// sortAllowances orders by symbol then spender for stable display.
func sortAllowances(list []allowance.Allowance) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Symbol != list[j].Symbol {
			return list[i].Symbol < list[j].Symbol
		}
		return list[i].Spender.Cmp(list[j].Spender) < 0
	})
}

func renderAllowanceTable(list []allowance.Allowance) string {
	t := ui.NewTable([]ui.Column{
		{Title: "TOKEN", Width: 14},
		{Title: "TYPE", Width: 10},
		{Title: "SPENDER", Width: 14},
		{Title: "AMOUNT", Width: 22},
		{Title: "BLOCK", Width: 10},
	})
	for _, a := range list {
		row := ui.Row{
			a.Symbol,
			describeKind(a),
			ui.TruncateAddr(a.Spender.Hex()),
			describeAmount(a),
			fmt.Sprintf("%d", a.LastUpdated.BlockNumber),
		}
		// Grants that expose everything stand out in the warning color.
		if a.Unlimited() || (a.ForAll && a.Approved) {
			t.AddRowStyled(row, ui.StyleWarning)
		} else {
			t.AddRow(row)
		}
	}
	return t.Render()
}

func describeKind(a allowance.Allowance) string {
	switch {
	case a.Permit2:
		return "permit2"
	case a.ForAll:
		return "operator"
	case a.TokenID != nil:
		return "nft"
	default:
		return "erc20"
	}
}

func describeAmount(a allowance.Allowance) string {
	switch {
	case a.ForAll:
		if a.Approved {
			return "all tokens"
		}
		return "revoked"
	case a.TokenID != nil:
		return "token #" + a.TokenID.String()
	case a.Unlimited():
		return "unlimited"
	case a.Amount == nil || a.Amount.Sign() == 0:
		return "revoked"
	default:
		return chain.FormatUnits(a.Amount, a.Decimals)
	}
}

func init() {
	allowancesCmd.Flags().StringVarP(&allowancesWallet, "wallet", "w", "", "wallet name or 0x address (default: default wallet)")
	allowancesCmd.Flags().StringVarP(&allowancesNetwork, "network", "n", "", "chain name (default: configured chain)")
	allowancesCmd.Flags().StringVar(&allowancesFromBlock, "from-block", "earliest", "start of the scanned block range")
	allowancesCmd.Flags().StringVar(&allowancesToBlock, "to-block", "latest", "end of the scanned block range")
	allowancesCmd.Flags().BoolVar(&allowancesAll, "all", false, "include revoked and zeroed allowances")
}
