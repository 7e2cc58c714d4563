package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/record"
)

// Stage identifies a step of the submission pipeline, reported through the
// progress callback as the pipeline advances.
type Stage string

// Submission stages, in order.
const (
	StageWritingPayload Stage = "writing payload"
	StageUpdatingIndex  Stage = "updating index"
	StageDone           Stage = "done"
)

// ProgressFunc observes submission stages. It is called synchronously and
// must be cheap.
type ProgressFunc func(Stage)

// SubmitFields are the caller-supplied fields of a new submission. Payload
// is the already-encrypted blob; the registry does not inspect it.
type SubmitFields struct {
	Payload             []byte
	MaterialType        string
	Properties          string
	ResearchInstitution string
}

// SubmitResult reports the outcome of a submission. On a partial-index
// failure ID and Record are populated and Indexed is false: the record is in
// the store but unreachable by scan until RetryIndex succeeds.
type SubmitResult struct {
	ID      string
	Record  record.Record
	Indexed bool
}

// Submit creates a new pending record owned by caller and routes it through
// the two-step write pipeline: record write, then index append. The two
// writes are not atomic; an index failure is surfaced distinctly as
// ErrPartialIndex so the caller can retry just the index step with the
// returned id.
func (e *Engine) Submit(ctx context.Context, caller string, fields SubmitFields, progress ProgressFunc) (SubmitResult, error) {
	if progress == nil {
		progress = func(Stage) {}
	}

	rec := record.Record{
		ID:                  newRecordID(),
		Payload:             fields.Payload,
		Timestamp:           time.Now().Unix(),
		Owner:               caller,
		MaterialType:        fields.MaterialType,
		Properties:          fields.Properties,
		ResearchInstitution: fields.ResearchInstitution,
		Status:              record.StatusPending,
	}
	if err := rec.Validate(); err != nil {
		e.metrics.recordSubmission("invalid")
		return SubmitResult{}, err
	}

	progress(StageWritingPayload)
	if err := e.store.Put(ctx, rec.ID, rec); err != nil {
		// Nothing references the id yet, so there is no index pollution.
		e.metrics.recordSubmission("write_failed")
		return SubmitResult{}, errors.Wrap(err, "Engine", "Submit", "write record")
	}

	progress(StageUpdatingIndex)
	if err := e.index.AppendID(ctx, rec.ID); err != nil {
		// The record is persisted but unreachable by scan: an orphan.
		e.metrics.recordSubmission("index_failed")
		e.logger.Error("record saved but not indexed, retry indexing",
			"id", rec.ID, "error", err)
		return SubmitResult{ID: rec.ID, Record: rec, Indexed: false},
			errors.WrapTransient(
				fmt.Errorf("%w: %w", errors.ErrPartialIndex, err),
				"Engine", "Submit", "append index")
	}

	progress(StageDone)
	e.metrics.recordSubmission("ok")
	e.resync(ctx)

	return SubmitResult{ID: rec.ID, Record: rec, Indexed: true}, nil
}

// RetryIndex re-runs only the index append for an id whose record write
// already succeeded, repairing an orphan record.
func (e *Engine) RetryIndex(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Engine", "RetryIndex", "empty id")
	}

	if err := e.index.AppendID(ctx, id); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrPartialIndex, err),
			"Engine", "RetryIndex", "append index")
	}

	e.metrics.recordIndexRepair()
	e.logger.Info("orphan record re-attached to index", "id", id)
	e.resync(ctx)
	return nil
}

// newRecordID builds a collision-resistant id: millisecond timestamp plus a
// short random suffix. Uniqueness is not re-checked against the store; the
// collision probability is accepted in exchange for one fewer round trip.
func newRecordID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
