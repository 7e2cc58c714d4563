package registry

import "github.com/materium/registry/record"

// Stats are dashboard aggregates over a projection.
type Stats struct {
	Total    int
	Pending  int
	Verified int
	Rejected int

	// VerifiedByType is a histogram of materialType restricted to verified
	// records. MaxTypeCount is its largest bucket, for chart scaling.
	VerifiedByType map[string]int
	MaxTypeCount   int
}

// Aggregate computes counts by status and the verified-materialType
// histogram. It is pure: no side effects, no failure modes; a nil or empty
// projection yields zero counts and an empty histogram.
func Aggregate(p *Projection) Stats {
	stats := Stats{VerifiedByType: make(map[string]int)}
	if p == nil {
		return stats
	}

	stats.Total = len(p.Records)
	for _, rec := range p.Records {
		switch rec.Status {
		case record.StatusPending:
			stats.Pending++
		case record.StatusVerified:
			stats.Verified++
			stats.VerifiedByType[rec.MaterialType]++
			if stats.VerifiedByType[rec.MaterialType] > stats.MaxTypeCount {
				stats.MaxTypeCount = stats.VerifiedByType[rec.MaterialType]
			}
		case record.StatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
