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

// seed writes a record and indexes it, bypassing the submission pipeline so
// tests control ids and timestamps exactly.
func seed(t *testing.T, mem *ledger.Memory, id string, rec record.Record) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.New(mem, nil).Put(ctx, id, rec))
	require.NoError(t, index.NewManager(mem, nil).AppendID(ctx, id))
}

func seeded(id string, timestamp int64, status record.Status) record.Record {
	return record.Record{
		Payload:             []byte("blob-" + id),
		Timestamp:           timestamp,
		Owner:               "0xOwnerA",
		MaterialType:        "Polymer",
		Properties:          "elastic",
		ResearchInstitution: "Caltech",
		Status:              status,
	}
}

func TestSync_EmptyLedger(t *testing.T) {
	e := New(ledger.NewMemory())

	p, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.Records)
	assert.Same(t, p, e.Projection(), "sync must publish the projection it returns")
}

func TestSync_Unavailable(t *testing.T) {
	mem := ledger.NewMemory()
	mem.SetAvailable(false)
	e := New(mem)

	_, err := e.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
	assert.Nil(t, e.Projection(), "a failed pass must not publish a projection")
}

func TestSync_OrdersByTimestampDescending(t *testing.T) {
	mem := ledger.NewMemory()
	seed(t, mem, "first", seeded("first", 100, record.StatusPending))
	seed(t, mem, "second", seeded("second", 300, record.StatusPending))
	seed(t, mem, "third", seeded("third", 200, record.StatusPending))

	e := New(mem)
	p, err := e.Sync(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, rec := range p.Records {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"second", "third", "first"}, ids)
}

func TestSync_TimestampTiesKeepIndexOrder(t *testing.T) {
	mem := ledger.NewMemory()
	seed(t, mem, "a", seeded("a", 500, record.StatusPending))
	seed(t, mem, "b", seeded("b", 500, record.StatusPending))
	seed(t, mem, "c", seeded("c", 500, record.StatusPending))

	e := New(mem, WithFanout(1))
	p, err := e.Sync(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, rec := range p.Records {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSync_SkipsMalformedRecord(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	seed(t, mem, "good-1", seeded("good-1", 100, record.StatusPending))
	seed(t, mem, "good-2", seeded("good-2", 200, record.StatusPending))

	// Indexed id whose blob is garbage
	require.NoError(t, index.NewManager(mem, nil).AppendID(ctx, "corrupt"))
	require.NoError(t, mem.Set(ctx, store.Key("corrupt"), []byte("}{")))

	e := New(mem)
	p, err := e.Sync(ctx)
	require.NoError(t, err, "one corrupt record must not abort the pass")
	assert.Equal(t, 2, p.Len())
	_, found := p.Get("corrupt")
	assert.False(t, found)
}

func TestSync_SkipsIndexedButAbsentRecord(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	seed(t, mem, "real", seeded("real", 100, record.StatusPending))

	// The index may transiently reference an id never written
	require.NoError(t, index.NewManager(mem, nil).AppendID(ctx, "ghost"))

	e := New(mem)
	p, err := e.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestSync_SkipsRecordWithFetchError(t *testing.T) {
	mem := ledger.NewMemory()
	seed(t, mem, "ok", seeded("ok", 100, record.StatusPending))
	seed(t, mem, "flaky", seeded("flaky", 200, record.StatusPending))
	mem.FailGet(store.Key("flaky"), assert.AnError)

	e := New(mem)
	p, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestSync_ProjectionReplacedAtomically(t *testing.T) {
	mem := ledger.NewMemory()
	seed(t, mem, "one", seeded("one", 100, record.StatusPending))

	e := New(mem)
	ctx := context.Background()

	first, err := e.Sync(ctx)
	require.NoError(t, err)

	seed(t, mem, "two", seeded("two", 200, record.StatusPending))
	second, err := e.Sync(ctx)
	require.NoError(t, err)

	// The older snapshot is untouched by the newer pass
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 2, second.Len())
	assert.Same(t, second, e.Projection())
}

func TestSync_BoundedFanout(t *testing.T) {
	mem := ledger.NewMemory()
	for i := 0; i < 25; i++ {
		id := string(rune('a' + i%26))
		seed(t, mem, id+"-x", seeded(id+"-x", int64(i), record.StatusPending))
	}

	e := New(mem, WithFanout(3))
	p, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, p.Len())
}
