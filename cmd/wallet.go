package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/revokehq/revokectl/internal/ui"
	"github.com/revokehq/revokectl/internal/wallet"
)

var walletAddKey string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage local wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet (watch-only by address, signing with --key)",
	Long: `Add a wallet. With an address argument the wallet is watch-only and can
only be scanned. With --key the private key goes into the OS keychain and
the wallet can sign revocation transactions.

Examples:
  revokectl wallet add cold 0xAbc...
  revokectl wallet add hot --key 0xdeadbeef...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		name := args[0]

		if walletAddKey != "" {
			if err := mgr.AddWithKey(name, walletAddKey); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Println(ui.Success(fmt.Sprintf("Added signing wallet %q (%s)", name, ui.TruncateAddr(w.Address))))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("provide an address for a watch-only wallet, or --key for a signing wallet")
		}
		err = mgr.Add(name, &wallet.Wallet{
			Name:    name,
			Address: args[1],
			Type:    wallet.TypeWatchOnly,
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added watch-only wallet %q", name)))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		wallets := mgr.List()
		if len(wallets) == 0 {
			fmt.Println(ui.Meta("No wallets yet. Add one with `revokectl wallet add`."))
			return nil
		}
		t := ui.NewTable([]ui.Column{
			{Title: "NAME", Width: 16},
			{Title: "ADDRESS", Width: 44},
			{Title: "TYPE", Width: 12},
			{Title: "DEFAULT", Width: 8},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, w.Type, def})
		}
		fmt.Println(t.Render())
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet is now %q", args[0])))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		w, err := mgr.Get(args[0])
		if err != nil {
			return err
		}
		if w.KeyRef != "" {
			if err := wallet.DefaultKeystore().Delete(w.KeyRef); err != nil {
				fmt.Println(ui.Warn(fmt.Sprintf("could not remove key from keychain: %v", err)))
			}
		}
		if err := mgr.Remove(args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed wallet %q", args[0])))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletAddKey, "key", "", "hex private key for a signing wallet")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletUseCmd, walletRemoveCmd)
}
