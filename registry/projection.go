package registry

import (
	"strings"
	"time"

	"github.com/materium/registry/record"
)

// Projection is a local, point-in-time view of the full registry, rebuilt
// from the index and record store on every sync. It is never authoritative:
// the ledger can change the moment after it is built. Records are ordered by
// timestamp descending, ties keeping index (append) order.
type Projection struct {
	Records  []record.Record
	SyncedAt time.Time
}

// Len returns the number of records in the projection.
func (p *Projection) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Records)
}

// Get returns the record with the given id, if present.
func (p *Projection) Get(id string) (record.Record, bool) {
	if p == nil {
		return record.Record{}, false
	}
	for _, rec := range p.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return record.Record{}, false
}

// Filter returns the records matching a free-text query and an optional
// status restriction. The query matches case-insensitively against
// materialType and researchInstitution; an empty query matches everything,
// and an empty status imposes no restriction. Order is preserved.
func (p *Projection) Filter(query string, status record.Status) []record.Record {
	if p == nil {
		return nil
	}

	query = strings.ToLower(query)
	out := make([]record.Record, 0, len(p.Records))
	for _, rec := range p.Records {
		if status != "" && rec.Status != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(rec.MaterialType), query) &&
			!strings.Contains(strings.ToLower(rec.ResearchInstitution), query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
