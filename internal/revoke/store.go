// Package revoke plans, simulates, submits, and tracks batch revocation
// transactions.
package revoke

import "sync"

// Status of one revocation attempt.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusReverted   Status = "reverted"
)

// Record is the tracked state of one allowance's revocation, keyed by the
// allowance identity key.
type Record struct {
	Status Status
	TxHash string
	Err    string // revert reason or failure message, reverted only
}

// StatusStore tracks per-allowance revocation state and fans updates out to
// subscribers. Safe for concurrent use.
type StatusStore struct {
	mu      sync.RWMutex
	records map[string]Record
	subs    []func(key string, rec Record)
}

// NewStatusStore creates an empty store.
func NewStatusStore() *StatusStore {
	return &StatusStore{records: make(map[string]Record)}
}

// Subscribe registers a callback invoked on every notifying update. The
// callback must not call back into the store.
func (s *StatusStore) Subscribe(fn func(key string, rec Record)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Get returns the record for key. Missing keys read as not_started.
func (s *StatusStore) Get(key string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{Status: StatusNotStarted}
	}
	return rec
}

// Snapshot returns a copy of every record.
func (s *StatusStore) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Init seeds keys as not_started without notifying subscribers. Existing
// records are untouched so a re-render never loses confirmed state.
func (s *StatusStore) Init(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if _, ok := s.records[k]; !ok {
			s.records[k] = Record{Status: StatusNotStarted}
		}
	}
}

// Set writes a record for key and notifies subscribers when notify is set.
//
// A confirmed record is terminal for its hash: the only write that may
// replace it is a fresh pending with no hash yet, which starts a new
// attempt. Everything else is dropped.
func (s *StatusStore) Set(key string, rec Record, notify bool) {
	s.mu.Lock()
	cur, ok := s.records[key]
	if ok && cur.Status == StatusConfirmed {
		if !(rec.Status == StatusPending && rec.TxHash == "") {
			s.mu.Unlock()
			return
		}
	}
	s.records[key] = rec
	subs := make([]func(string, Record), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if !notify {
		return
	}
	for _, fn := range subs {
		fn(key, rec)
	}
}

// AllConfirmed reports whether every given key has landed.
func (s *StatusStore) AllConfirmed(keys []string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if s.records[k].Status != StatusConfirmed {
			return false
		}
	}
	return true
}
