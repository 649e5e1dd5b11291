package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/config"
	"github.com/revokehq/revokectl/internal/wallet"
)

func newWalletManager() (*wallet.Manager, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	store := wallet.NewJSONStore(filepath.Join(dir, "wallets.json"))
	return wallet.NewManager(wallet.WithStore(store)), nil
}

// resolveChain returns the chain and RPC URL for a network flag, falling back
// to the configured default. Config RPC overrides win over the registry list.
func resolveChain(networkFlag string) (*chain.Chain, string, error) {
	name := networkFlag
	if name == "" {
		name = cfg.DefaultChain
	}
	reg := chain.NewRegistry()
	c, err := reg.GetByName(name)
	if err != nil {
		return nil, "", fmt.Errorf("unknown chain %q — run `revokectl chains` to list supported chains", name)
	}
	if url, ok := cfg.RPCFor(c.Name); ok {
		return c, url, nil
	}
	rpcs := c.RPCs(cfg.Mode)
	if len(rpcs) == 0 {
		return nil, "", fmt.Errorf("no RPCs configured for %s (%s)", c.Name, cfg.Mode)
	}
	return c, rpcs[0], nil
}

// resolveOwner turns a --wallet flag into an address: a 0x address passes
// through, a name is looked up, empty falls back to the default wallet.
func resolveOwner(walletFlag string) (string, error) {
	mgr, err := newWalletManager()
	if err != nil {
		return "", err
	}

	if walletFlag == "" {
		w := mgr.Default()
		if w == nil {
			return "", fmt.Errorf("no wallet specified — use --wallet <address> or set a default:\n  revokectl wallet add myWallet 0x...\n  revokectl wallet use myWallet")
		}
		return w.Address, nil
	}

	if len(walletFlag) >= 40 && (walletFlag[:2] == "0x" || walletFlag[:2] == "0X") {
		return walletFlag, nil
	}

	w, err := mgr.Get(walletFlag)
	if err != nil {
		return "", fmt.Errorf("wallet %q not found — run `revokectl wallet list` to see available wallets, or pass an address directly", walletFlag)
	}
	return w.Address, nil
}

// loadSigningWallet loads a wallet by name and verifies it can sign
// transactions. An empty name resolves the default wallet.
func loadSigningWallet(walletName string) (*wallet.Wallet, error) {
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	var w *wallet.Wallet
	if walletName == "" {
		w = mgr.Default()
		if w == nil {
			return nil, fmt.Errorf("no wallet specified — use --wallet <name> or set a default with `revokectl wallet use <name>`")
		}
	} else {
		w, err = mgr.Get(walletName)
		if err != nil {
			return nil, fmt.Errorf("wallet %q not found — run `revokectl wallet list`", walletName)
		}
	}
	if w.Type != wallet.TypeSigning {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign transactions\n  To add a signing wallet: revokectl wallet add <name> --key <private-key>", w.Name)
	}
	return w, nil
}
