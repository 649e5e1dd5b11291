package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/ui"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := ui.NewTable([]ui.Column{
			{Title: "NAME", Width: 12},
			{Title: "CHAIN ID", Width: 10},
			{Title: "CURRENCY", Width: 10},
			{Title: "BATCH", Width: 8},
			{Title: "EXPLORER", Width: 36},
		})
		for _, c := range chain.NewRegistry().All() {
			batch := "-"
			if c.MaxClauses > 1 {
				batch = fmt.Sprintf("%d", c.MaxClauses)
			}
			t.AddRow(ui.Row{
				c.Name,
				fmt.Sprintf("%d", c.ChainID),
				c.NativeCurrency,
				batch,
				c.Explorer(cfg.Mode),
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta("  BATCH shows the clause limit on chains with native multi-clause transactions."))
		return nil
	},
}
