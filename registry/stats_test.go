package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/materium/registry/record"
)

func projectionOf(recs ...record.Record) *Projection {
	return &Projection{Records: recs}
}

func rec(id string, status record.Status, materialType, institution string) record.Record {
	return record.Record{
		ID:                  id,
		Owner:               testOwner,
		MaterialType:        materialType,
		Properties:          "p",
		ResearchInstitution: institution,
		Status:              status,
	}
}

func TestAggregate_CountsByStatus(t *testing.T) {
	p := projectionOf(
		rec("1", record.StatusPending, "Polymer", "MIT"),
		rec("2", record.StatusVerified, "Polymer", "MIT"),
		rec("3", record.StatusVerified, "Alloy", "ETH"),
		rec("4", record.StatusVerified, "Polymer", "ETH"),
		rec("5", record.StatusRejected, "Ceramic", "MIT"),
	)

	stats := Aggregate(p)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 3, stats.Verified)
	assert.Equal(t, 1, stats.Rejected)
}

func TestAggregate_VerifiedHistogram(t *testing.T) {
	p := projectionOf(
		rec("1", record.StatusVerified, "Polymer", "MIT"),
		rec("2", record.StatusVerified, "Polymer", "ETH"),
		rec("3", record.StatusVerified, "Alloy", "MIT"),
		// Pending and rejected records never enter the histogram
		rec("4", record.StatusPending, "Polymer", "MIT"),
		rec("5", record.StatusRejected, "Alloy", "MIT"),
	)

	stats := Aggregate(p)
	assert.Equal(t, map[string]int{"Polymer": 2, "Alloy": 1}, stats.VerifiedByType)
	assert.Equal(t, 2, stats.MaxTypeCount)
}

func TestAggregate_NilAndEmpty(t *testing.T) {
	for name, p := range map[string]*Projection{"nil": nil, "empty": projectionOf()} {
		t.Run(name, func(t *testing.T) {
			stats := Aggregate(p)
			assert.Zero(t, stats.Total)
			assert.NotNil(t, stats.VerifiedByType)
			assert.Empty(t, stats.VerifiedByType)
			assert.Zero(t, stats.MaxTypeCount)
		})
	}
}

func TestProjection_Filter(t *testing.T) {
	p := projectionOf(
		rec("1", record.StatusPending, "Polymer", "MIT"),
		rec("2", record.StatusVerified, "Alloy", "ETH Zurich"),
		rec("3", record.StatusVerified, "Polymer Blend", "Caltech"),
	)

	t.Run("query matches type case-insensitively", func(t *testing.T) {
		got := p.Filter("polymer", "")
		assert.Len(t, got, 2)
	})

	t.Run("query matches institution", func(t *testing.T) {
		got := p.Filter("zurich", "")
		assert.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})

	t.Run("status restriction", func(t *testing.T) {
		got := p.Filter("", record.StatusVerified)
		assert.Len(t, got, 2)
	})

	t.Run("query and status combined", func(t *testing.T) {
		got := p.Filter("polymer", record.StatusVerified)
		assert.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("empty filter returns all in order", func(t *testing.T) {
		got := p.Filter("", "")
		assert.Len(t, got, 3)
		assert.Equal(t, "1", got[0].ID)
	})
}

func TestProjection_NilSafe(t *testing.T) {
	var p *Projection
	assert.Zero(t, p.Len())
	assert.Nil(t, p.Filter("anything", record.StatusPending))
	_, found := p.Get("x")
	assert.False(t, found)
}
