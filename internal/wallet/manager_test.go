package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Throwaway development key; its well-known address anchors derivation.
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const devAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestManagerWatchOnlyLifecycle(t *testing.T) {
	mgr := NewManager()

	require.NoError(t, mgr.Add("cold", &Wallet{Name: "cold", Address: devAddr, Type: TypeWatchOnly}))
	assert.ErrorIs(t, mgr.Add("cold", &Wallet{Name: "cold"}), ErrWalletExists)

	w, err := mgr.Get("cold")
	require.NoError(t, err)
	assert.Equal(t, TypeWatchOnly, w.Type)
	assert.NotEmpty(t, w.CreatedAt)

	require.NoError(t, mgr.Remove("cold"))
	_, err = mgr.Get("cold")
	assert.ErrorIs(t, err, ErrWalletNotFound)
	assert.ErrorIs(t, mgr.Remove("cold"), ErrWalletNotFound)
}

func TestManagerAddWithKey(t *testing.T) {
	ks := NewInMemoryKeystore()
	mgr := NewManager(WithKeystore(ks))

	require.NoError(t, mgr.AddWithKey("hot", devKey))
	w, err := mgr.Get("hot")
	require.NoError(t, err)
	assert.Equal(t, TypeSigning, w.Type)
	assert.Equal(t, devAddr, w.Address)
	assert.NotEmpty(t, w.KeyRef)

	// The key round-trips through the keystore, not the wallet record.
	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, devKey, stored)

	assert.ErrorIs(t, mgr.AddWithKey("bad", "not-a-key"), ErrInvalidKey)
}

func TestManagerDefault(t *testing.T) {
	mgr := NewManager()
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.Add("one", &Wallet{Name: "one", Address: "0x01"}))
	// A single wallet is the implicit default.
	require.NotNil(t, mgr.Default())
	assert.Equal(t, "one", mgr.Default().Name)

	require.NoError(t, mgr.Add("two", &Wallet{Name: "two", Address: "0x02"}))
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.SetDefault("two"))
	assert.Equal(t, "two", mgr.Default().Name)

	require.NoError(t, mgr.SetDefault("one"))
	assert.Equal(t, "one", mgr.Default().Name)
	assert.ErrorIs(t, mgr.SetDefault("missing"), ErrWalletNotFound)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	mgr := NewManager(WithStore(NewJSONStore(path)))
	require.NoError(t, mgr.Add("cold", &Wallet{Name: "cold", Address: devAddr, Type: TypeWatchOnly}))

	// A fresh manager over the same file sees the wallet.
	mgr2 := NewManager(WithStore(NewJSONStore(path)))
	w, err := mgr2.Get("cold")
	require.NoError(t, err)
	assert.Equal(t, devAddr, w.Address)
}

func TestSignerWatchOnlyRefusal(t *testing.T) {
	s := NewSigner(&Wallet{Name: "cold", Type: TypeWatchOnly}, NewInMemoryKeystore())
	_, err := s.SignTx(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch-only")
}
