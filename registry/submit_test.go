package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/index"
	"github.com/materium/registry/ledger"
	"github.com/materium/registry/record"
	"github.com/materium/registry/store"
)

const testOwner = "0xAbC123OwnerAddress"

func validFields() SubmitFields {
	return SubmitFields{
		Payload:             []byte("encrypted-material-data"),
		MaterialType:        "Polymer",
		Properties:          "tensile strength 50 MPa",
		ResearchInstitution: "MIT",
	}
}

func TestSubmit_HappyPath(t *testing.T) {
	mem := ledger.NewMemory()
	e := New(mem)
	ctx := context.Background()

	var stages []Stage
	res, err := e.Submit(ctx, testOwner, validFields(), func(s Stage) {
		stages = append(stages, s)
	})
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageWritingPayload, StageUpdatingIndex, StageDone}, stages)
	assert.NotEmpty(t, res.ID)
	assert.True(t, res.Indexed)
	assert.Equal(t, record.StatusPending, res.Record.Status)
	assert.Equal(t, testOwner, res.Record.Owner)

	// The successful submission refreshed the projection
	p := e.Projection()
	require.NotNil(t, p)
	got, found := p.Get(res.ID)
	require.True(t, found)
	assert.Equal(t, []byte("encrypted-material-data"), got.Payload)

	ids, err := index.NewManager(mem, nil).ListIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, res.ID)
}

func TestSubmit_ValidationRejectsIncompleteFields(t *testing.T) {
	mem := ledger.NewMemory()
	e := New(mem)
	ctx := context.Background()

	fields := validFields()
	fields.MaterialType = ""
	_, err := e.Submit(ctx, testOwner, fields, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidRecord)
	assert.Zero(t, mem.Len(), "a rejected submission must not touch the ledger")
}

func TestSubmit_EmptyOwnerRejected(t *testing.T) {
	e := New(ledger.NewMemory())

	_, err := e.Submit(context.Background(), "", validFields(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidRecord)
}

func TestSubmit_RecordWriteFailureLeavesIndexClean(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()

	// Record keys are unpredictable, so fail every write except the index
	e := New(&recordWriteFailingLedger{mem: mem})

	res, err := e.Submit(ctx, testOwner, validFields(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrWriteFailure)
	assert.NotErrorIs(t, err, errors.ErrPartialIndex)
	assert.Empty(t, res.ID)

	ids, err := index.NewManager(mem, nil).ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "a failed record write must not pollute the index")
}

func TestSubmit_IndexFailureReturnsPartialResult(t *testing.T) {
	mem := ledger.NewMemory()
	mem.FailSet(index.Key, assert.AnError)
	e := New(mem)
	ctx := context.Background()

	var stages []Stage
	res, err := e.Submit(ctx, testOwner, validFields(), func(s Stage) {
		stages = append(stages, s)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPartialIndex)
	assert.True(t, errors.IsTransient(err))

	// The pipeline stopped between the two writes
	assert.Equal(t, []Stage{StageWritingPayload, StageUpdatingIndex}, stages)

	// The orphan record is retrievable directly even though no scan finds it
	require.NotEmpty(t, res.ID)
	assert.False(t, res.Indexed)
	got, gerr := store.New(mem, nil).Get(ctx, res.ID)
	require.NoError(t, gerr)
	assert.Equal(t, testOwner, got.Owner)

	ids, lerr := index.NewManager(mem, nil).ListIDs(ctx)
	require.NoError(t, lerr)
	assert.NotContains(t, ids, res.ID)
}

func TestRetryIndex_RepairsOrphan(t *testing.T) {
	mem := ledger.NewMemory()
	mem.FailSet(index.Key, assert.AnError)
	e := New(mem)
	ctx := context.Background()

	res, err := e.Submit(ctx, testOwner, validFields(), nil)
	require.ErrorIs(t, err, errors.ErrPartialIndex)

	mem.ClearFailures()
	require.NoError(t, e.RetryIndex(ctx, res.ID))

	p, err := e.Sync(ctx)
	require.NoError(t, err)
	_, found := p.Get(res.ID)
	assert.True(t, found, "repaired record must be reachable by scan")
}

func TestRetryIndex_EmptyID(t *testing.T) {
	e := New(ledger.NewMemory())

	err := e.RetryIndex(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidRecord)
}

func TestRetryIndex_StillFailing(t *testing.T) {
	mem := ledger.NewMemory()
	mem.FailSet(index.Key, assert.AnError)
	e := New(mem)

	err := e.RetryIndex(context.Background(), "1700000000000-abcdefg")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPartialIndex)
}

func TestNewRecordID_Shape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newRecordID()
		assert.Regexp(t, `^\d+-[0-9a-f]{7}$`, id)
		assert.False(t, seen[id], "ids must not collide under rapid generation")
		seen[id] = true
	}
}

// recordWriteFailingLedger fails every record write but lets index traffic
// through, modeling a ledger that rejects large values.
type recordWriteFailingLedger struct {
	mem *ledger.Memory
}

func (l *recordWriteFailingLedger) IsAvailable(ctx context.Context) bool {
	return l.mem.IsAvailable(ctx)
}

func (l *recordWriteFailingLedger) Get(ctx context.Context, key string) ([]byte, error) {
	return l.mem.Get(ctx, key)
}

func (l *recordWriteFailingLedger) Set(ctx context.Context, key string, value []byte) error {
	if key != index.Key {
		return assert.AnError
	}
	return l.mem.Set(ctx, key, value)
}
