// Package index maintains the scannable catalog of record ids inside a
// key-value store that has no native listing primitive.
//
// The whole index is one JSON array of id strings persisted under a single
// well-known key. Appends are read-modify-write: when the ledger offers the
// atomic Updater capability the merge runs under its conflict-retry
// discipline, otherwise the append is plain get/set and a concurrent
// appender can win the whole-list write (last writer wins, an accepted risk
// of the underlying store). Ids are never removed.
package index

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/ledger"
)

// Key is the well-known ledger key holding the serialized id list.
const Key = "material_keys"

// Manager owns the index key. It is the only component that writes it.
type Manager struct {
	ledger ledger.Client
	logger *slog.Logger
}

// NewManager creates an index manager over the given ledger.
func NewManager(l ledger.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{ledger: l, logger: logger}
}

// ListIDs returns every id in the index in append order. An unset index key
// yields an empty list. A present-but-undecodable index also yields an empty
// list with a logged warning rather than an error: one corrupt blob must not
// take the whole registry view down.
func (m *Manager) ListIDs(ctx context.Context) ([]string, error) {
	data, err := m.ledger.Get(ctx, Key)
	if err != nil {
		return nil, errors.WrapTransient(err, "Index", "ListIDs", "read index key")
	}
	return m.decode(data), nil
}

// AppendID adds id to the index with set semantics: appending an id that is
// already present leaves the index unchanged. The append is not atomic with
// respect to other writers unless the ledger implements ledger.Updater.
func (m *Manager) AppendID(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Index", "AppendID", "empty id")
	}

	merge := func(current []byte) ([]byte, error) {
		ids := m.decode(current)
		for _, existing := range ids {
			if existing == id {
				return current, nil
			}
		}
		return json.Marshal(append(ids, id))
	}

	if updater, ok := m.ledger.(ledger.Updater); ok {
		if err := updater.Update(ctx, Key, merge); err != nil {
			return errors.WrapTransient(err, "Index", "AppendID", "atomic append")
		}
		return nil
	}

	// Plain path: read, merge, write back. Lost updates between concurrent
	// appenders are possible here.
	current, err := m.ledger.Get(ctx, Key)
	if err != nil {
		return errors.WrapTransient(err, "Index", "AppendID", "read index key")
	}

	next, err := merge(current)
	if err != nil {
		return errors.WrapFatal(err, "Index", "AppendID", "encode index")
	}

	if err := m.ledger.Set(ctx, Key, next); err != nil {
		return errors.WrapTransient(err, "Index", "AppendID", "write index key")
	}
	return nil
}

// decode parses the stored id list, treating both empty and undecodable
// bytes as an empty index.
func (m *Manager) decode(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		m.logger.Warn("index key undecodable, treating as empty", "key", Key, "error", err)
		return []string{}
	}
	return ids
}
