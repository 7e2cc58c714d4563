package registry

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/record"
)

// Transition applies a pending → verified or pending → rejected status
// change to the record with the given id, gated on ownership. The caller
// identity is compared case-insensitively against the record owner. On
// success the change is persisted and the projection refreshed; the
// projection is never updated optimistically ahead of the write.
func (e *Engine) Transition(ctx context.Context, id, caller string, target record.Status) error {
	if !target.Terminal() {
		e.metrics.recordTransition("invalid_target")
		return errors.WrapInvalid(errors.ErrInvalidTransition, "Engine", "Transition",
			fmt.Sprintf("target %q is not a terminal status", target))
	}

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			e.metrics.recordTransition("not_found")
		} else {
			e.metrics.recordTransition("fetch_failed")
		}
		return errors.Wrap(err, "Engine", "Transition", "fetch record")
	}

	if !rec.OwnedBy(caller) {
		e.metrics.recordTransition("unauthorized")
		return errors.WrapInvalid(errors.ErrUnauthorized, "Engine", "Transition",
			fmt.Sprintf("record %s", id))
	}

	if rec.Status != record.StatusPending {
		e.metrics.recordTransition("invalid_transition")
		return errors.WrapInvalid(errors.ErrInvalidTransition, "Engine", "Transition",
			fmt.Sprintf("record %s is %s", id, rec.Status))
	}

	rec.Status = target
	if err := e.store.Put(ctx, id, rec); err != nil {
		e.metrics.recordTransition("write_failed")
		return errors.Wrap(err, "Engine", "Transition", "persist status")
	}

	e.metrics.recordTransition("ok")
	e.logger.Info("record status transitioned", "id", id, "status", target)
	e.resync(ctx)
	return nil
}
