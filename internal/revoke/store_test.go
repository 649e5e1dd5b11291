package revoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDefaults(t *testing.T) {
	s := NewStatusStore()
	assert.Equal(t, StatusNotStarted, s.Get("missing").Status)
	assert.Empty(t, s.Snapshot())
}

func TestStoreInitDoesNotNotify(t *testing.T) {
	s := NewStatusStore()
	notified := 0
	s.Subscribe(func(string, Record) { notified++ })

	s.Init([]string{"a", "b"})
	assert.Equal(t, 0, notified)
	assert.Equal(t, StatusNotStarted, s.Get("a").Status)

	// Init never downgrades existing state.
	s.Set("a", Record{Status: StatusConfirmed, TxHash: "0x1"}, false)
	s.Init([]string{"a"})
	assert.Equal(t, StatusConfirmed, s.Get("a").Status)
}

func TestStoreNotify(t *testing.T) {
	s := NewStatusStore()
	var gotKey string
	var gotRec Record
	s.Subscribe(func(key string, rec Record) {
		gotKey = key
		gotRec = rec
	})

	s.Set("a", Record{Status: StatusPending, TxHash: "0x1"}, true)
	assert.Equal(t, "a", gotKey)
	assert.Equal(t, StatusPending, gotRec.Status)

	s.Set("b", Record{Status: StatusReverted, Err: "nope"}, false)
	assert.Equal(t, "a", gotKey) // silent write did not notify
}

func TestStoreConfirmedIsTerminal(t *testing.T) {
	s := NewStatusStore()
	s.Set("a", Record{Status: StatusConfirmed, TxHash: "0x1"}, false)

	// Neither a revert nor a pending for the same hash may overwrite it.
	s.Set("a", Record{Status: StatusReverted, TxHash: "0x1", Err: "late revert"}, false)
	assert.Equal(t, StatusConfirmed, s.Get("a").Status)

	s.Set("a", Record{Status: StatusPending, TxHash: "0x2"}, false)
	assert.Equal(t, StatusConfirmed, s.Get("a").Status)

	// A fresh attempt (pending, no hash yet) starts over.
	s.Set("a", Record{Status: StatusPending}, false)
	require.Equal(t, StatusPending, s.Get("a").Status)
	assert.Empty(t, s.Get("a").TxHash)
}

func TestStoreAllConfirmed(t *testing.T) {
	s := NewStatusStore()
	assert.False(t, s.AllConfirmed(nil))

	s.Set("a", Record{Status: StatusConfirmed}, false)
	s.Set("b", Record{Status: StatusPending}, false)
	assert.False(t, s.AllConfirmed([]string{"a", "b"}))

	s.Set("b", Record{Status: StatusConfirmed}, false)
	assert.True(t, s.AllConfirmed([]string{"a", "b"}))
}
