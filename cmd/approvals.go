package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/events"
	"github.com/revokehq/revokectl/internal/token"
	"github.com/revokehq/revokectl/internal/ui"
)

var (
	approvalsWallet    string
	approvalsNetwork   string
	approvalsFromBlock string
	approvalsToBlock   string
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Dump the raw approval event history for an address",
	Long: `List every approval-shaped event emitted for an address in chain
order, before any reduction or deduplication. Useful for auditing how an
allowance came to be.

Examples:
  revokectl approvals --wallet 0xOwner
  revokectl approvals --wallet myWallet --from-block 0x10d4f40`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := resolveOwner(approvalsWallet)
		if err != nil {
			return err
		}
		c, rpcURL, err := resolveChain(approvalsNetwork)
		if err != nil {
			return err
		}

		client := chain.NewEVMClient(rpcURL)
		agg := events.NewAggregator(client, logger)

		spin := ui.NewSpinner(fmt.Sprintf("Fetching approval events on %s...", c.DisplayName))
		spin.Start()
		bundle, err := agg.Aggregate(cmd.Context(), common.HexToAddress(owner), approvalsFromBlock, approvalsToBlock)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("fetching events: %w", err)
		}

		all := append(append(append([]chain.Log{}, bundle.Approval...), bundle.ApprovalForAll...), bundle.Permit2Approval...)
		chain.SortLogs(all)

		if len(all) == 0 {
			fmt.Println(ui.Meta("No approval events in the scanned range."))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "BLOCK", Width: 10},
			{Title: "EVENT", Width: 16},
			{Title: "CONTRACT", Width: 14},
			{Title: "TX", Width: 14},
		})
		for _, l := range all {
			t.AddRow(ui.Row{
				fmt.Sprintf("%d", l.BlockNumber),
				describeEvent(l),
				ui.TruncateAddr(l.Address.Hex()),
				ui.TruncateAddr(l.TxHash.Hex()),
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("  %d event(s) on %s (%s)", len(all), c.DisplayName, cfg.Mode)))
		return nil
	},
}

func describeEvent(l chain.Log) string {
	if len(l.Topics) == 0 {
		return "unknown"
	}
	switch l.Topics[0] {
	case token.TopicApproval:
		if len(l.Topics) == 4 {
			return "Approval (nft)"
		}
		return "Approval"
	case token.TopicApprovalForAll:
		return "ApprovalForAll"
	case events.TopicPermit2Approval:
		return "Permit2 Approval"
	case events.TopicPermit2Permit:
		return "Permit2 Permit"
	case events.TopicPermit2Lockdown:
		return "Permit2 Lockdown"
	}
	return "unknown"
}

func init() {
	approvalsCmd.Flags().StringVarP(&approvalsWallet, "wallet", "w", "", "wallet name or 0x address (default: default wallet)")
	approvalsCmd.Flags().StringVarP(&approvalsNetwork, "network", "n", "", "chain name (default: configured chain)")
	approvalsCmd.Flags().StringVar(&approvalsFromBlock, "from-block", "earliest", "start of the scanned block range")
	approvalsCmd.Flags().StringVar(&approvalsToBlock, "to-block", "latest", "end of the scanned block range")
}
