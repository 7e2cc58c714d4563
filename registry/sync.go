package registry

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/record"
)

// Sync rebuilds the local projection from the ledger: availability probe,
// index scan, bounded-concurrency per-record fetch, stable sort by timestamp
// descending. Records that are absent or undecodable are skipped, never
// fatal; partial results under concurrent writers are expected. The new
// projection replaces the previous one atomically and is also returned.
func (e *Engine) Sync(ctx context.Context) (*Projection, error) {
	start := time.Now()

	if !e.ledger.IsAvailable(ctx) {
		e.metrics.recordSyncPass("unavailable", 0, 0)
		return nil, errors.WrapTransient(errors.ErrStoreUnavailable, "Engine", "Sync", "availability probe")
	}

	ids, err := e.index.ListIDs(ctx)
	if err != nil {
		e.metrics.recordSyncPass("index_error", 0, 0)
		return nil, errors.Wrap(err, "Engine", "Sync", "scan index")
	}

	// Fetch into index-order slots so the sort's tie-break (append order,
	// which is chronological) survives concurrent completion order.
	fetched := make([]record.Record, len(ids))
	present := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanout)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := e.store.Get(gctx, id)
			if err != nil {
				// Absent and undecodable records are expected under
				// concurrent writes and corrupt blobs: skip, continue.
				switch {
				case stderrors.Is(err, errors.ErrDecode):
					e.logger.Warn("sync: skipping undecodable record", "id", id, "error", err)
					e.metrics.recordSkip("decode")
				case stderrors.Is(err, errors.ErrNotFound):
					e.logger.Debug("sync: record not found, skipping", "id", id)
					e.metrics.recordSkip("absent")
				default:
					e.logger.Warn("sync: record fetch failed, skipping", "id", id, "error", err)
					e.metrics.recordSkip("fetch")
				}
				return nil
			}
			fetched[i] = rec
			present[i] = true
			return nil
		})
	}
	// Workers never return errors; Wait is a completion barrier.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		e.metrics.recordSyncPass("cancelled", 0, 0)
		return nil, errors.WrapTransient(err, "Engine", "Sync", "fetch records")
	}

	records := make([]record.Record, 0, len(ids))
	for i := range fetched {
		if present[i] {
			records = append(records, fetched[i])
		}
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Timestamp > records[b].Timestamp
	})

	projection := &Projection{
		Records:  records,
		SyncedAt: time.Now(),
	}
	e.current.Store(projection)

	elapsed := time.Since(start)
	e.metrics.recordSyncPass("ok", elapsed.Seconds(), len(records))
	e.logger.Info("registry synchronized",
		"indexed", len(ids),
		"loaded", len(records),
		"elapsed", elapsed)

	return projection, nil
}

// resync refreshes the projection after a successful write. A failed refresh
// does not undo the write, so it is logged and swallowed.
func (e *Engine) resync(ctx context.Context) {
	if _, err := e.Sync(ctx); err != nil {
		e.logger.Warn("post-write sync failed, projection is stale", "error", err)
	}
}
