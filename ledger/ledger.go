package ledger

import "context"

// Client is the consumed contract of the remote key-value ledger. The ledger
// offers single-key get/set with no native listing, indexing or multi-key
// transactions; everything the registry builds sits on these primitives.
type Client interface {
	// IsAvailable probes whether the ledger can serve requests. Callers
	// check it once per synchronization pass and abort the pass when false.
	IsAvailable(ctx context.Context) bool

	// Get returns the bytes stored under key. A key that was never set
	// yields (nil, nil): empty is a normal state, not an error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value. The write
	// may be rejected (authorization) or lost to the network; either way a
	// non-nil error means the value must not be assumed persisted.
	Set(ctx context.Context, key string, value []byte) error
}

// Updater is an optional capability a ledger may offer: an atomic
// read-modify-write of a single key. Consumers discover it by type
// assertion and fall back to plain Get/Set when absent, so the
// append-merge discipline can harden without touching callers.
type Updater interface {
	// Update applies fn to the current value of key and persists the
	// result, retrying internally on concurrent-writer conflicts. fn may
	// be invoked multiple times and must be side-effect free; it receives
	// nil when the key is unset.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}
