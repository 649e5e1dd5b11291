// Package cmd implements the revokectl command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/revokehq/revokectl/internal/config"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/revokehq/revokectl/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfg       *config.Config
	logger    *zap.Logger
	verbose   bool
	testnet   bool
	mainnet   bool
	configDir string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "revokectl",
	Short: "Token approval hygiene for the terminal",
	Long: `revokectl — discover and revoke token allowances from the terminal.

  Scan an address's event history for ERC-20, ERC-721 and Permit2
  approvals, see exactly which spenders can still move your tokens,
  and revoke them in batch with preflight simulation.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation. Without either flag the persisted mode is used
(default: mainnet).`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if configDir != "" {
			config.SetDir(configDir)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.Mode = "testnet"
		}
		if mainnet {
			cfg.Mode = "mainnet"
		}
		cfg.Verbose = verbose

		if verbose {
			logger, err = zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
		} else {
			logger = zap.NewNop()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync() //nolint:errcheck
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.revokectl)")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		allowancesCmd,
		approvalsCmd,
		revokeCmd,
		walletCmd,
		chainsCmd,
	)
}
