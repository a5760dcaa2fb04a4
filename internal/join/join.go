// Package join attaches an auxiliary per-researcher count to result records by
// normalized name.
package join

import (
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/identity"
)

// AuxiliaryEntity is one row of the auxiliary dataset. A Count that was never
// set means the source row had no value.
type AuxiliaryEntity struct {
	Name  string
	Count enrich.OptionalCount
}

// Result is the outcome of a join.
type Result struct {
	Records   []enrich.Record
	Matched   int
	Total     int
	MatchRate float64
	Unmatched []string
}

// Join sets TotalRelatedCount on a copy of every target record. Misses get the
// absent sentinel, which serializes as null. When several source rows share a
// normalized name the last one wins. Source rows that match nothing are
// ignored.
func Join(target []enrich.Record, source []AuxiliaryEntity) Result {
	lookup := make(map[string]enrich.OptionalCount, len(source))
	for _, s := range source {
		c := s.Count
		if !c.Attached() {
			c = enrich.AbsentCount()
		}
		lookup[identity.Normalize(s.Name)] = c
	}

	res := Result{
		Records:   make([]enrich.Record, len(target)),
		Total:     len(target),
		Unmatched: []string{},
	}
	for i, r := range target {
		if c, ok := lookup[identity.Normalize(r.Name)]; ok {
			r.TotalRelatedCount = c
			res.Matched++
		} else {
			r.TotalRelatedCount = enrich.AbsentCount()
			res.Unmatched = append(res.Unmatched, r.Name)
		}
		res.Records[i] = r
	}
	if res.Total > 0 {
		res.MatchRate = float64(res.Matched) / float64(res.Total)
	}
	return res
}
