// Package store provides keyed access to individual material records in the
// ledger, under keys of the form "material_{id}".
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/ledger"
	"github.com/materium/registry/record"
)

// keyPrefix namespaces record keys away from the index key.
const keyPrefix = "material_"

// Key returns the ledger key for a record id.
func Key(id string) string {
	return keyPrefix + id
}

// Store reads and writes material records through the ledger and codec.
type Store struct {
	ledger ledger.Client
	logger *slog.Logger
}

// New creates a record store over the given ledger.
func New(l ledger.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{ledger: l, logger: logger}
}

// Get fetches and decodes the record stored under id. An unset key yields
// ErrNotFound. Undecodable bytes also match ErrNotFound, so callers that
// only care about presence can treat corrupt records as absent, while the
// error still matches ErrDecode for callers that want to count skips.
func (s *Store) Get(ctx context.Context, id string) (record.Record, error) {
	if id == "" {
		return record.Record{}, errors.WrapInvalid(errors.ErrNotFound, "Store", "Get", "empty id")
	}

	data, err := s.ledger.Get(ctx, Key(id))
	if err != nil {
		return record.Record{}, errors.WrapTransient(err, "Store", "Get", fmt.Sprintf("fetch %s", id))
	}
	if len(data) == 0 {
		return record.Record{}, errors.WrapInvalid(errors.ErrNotFound, "Store", "Get", fmt.Sprintf("record %s", id))
	}

	rec, err := record.Decode(data)
	if err != nil {
		s.logger.Warn("skipping undecodable record", "id", id, "error", err)
		return record.Record{}, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrNotFound, err),
			"Store", "Get", fmt.Sprintf("decode %s", id))
	}

	rec.ID = id
	return rec, nil
}

// Put encodes and writes a record under its id, replacing any previous value.
func (s *Store) Put(ctx context.Context, id string, rec record.Record) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Store", "Put", "empty id")
	}

	data, err := record.Encode(rec)
	if err != nil {
		return err
	}

	if err := s.ledger.Set(ctx, Key(id), data); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrWriteFailure, err),
			"Store", "Put", fmt.Sprintf("write %s", id))
	}
	return nil
}
