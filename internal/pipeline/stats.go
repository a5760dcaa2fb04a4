package pipeline

import "github.com/shpitdev/researcher-enrichment/internal/enrich"

// Stats aggregates a result set.
type Stats struct {
	Total            int
	ByClassification map[enrich.Classification]int
	Successful       int
	SuccessRate      float64
	TotalEvidence    int
	AverageEvidence  float64
	LastProcessed    string
}

// Summarize computes distribution, search success rate and average evidence
// count. Rates are fractions in [0,1] and zero for an empty set.
func Summarize(results []enrich.Record) Stats {
	s := Stats{
		Total:            len(results),
		ByClassification: make(map[enrich.Classification]int),
	}
	for _, r := range results {
		s.ByClassification[r.Classification]++
		if r.SearchSuccessful {
			s.Successful++
		}
		s.TotalEvidence += r.EvidenceCount
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total)
		s.AverageEvidence = float64(s.TotalEvidence) / float64(s.Total)
		s.LastProcessed = results[s.Total-1].Name
	}
	return s
}

// Share returns the fraction of results with classification c.
func (s Stats) Share(c enrich.Classification) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByClassification[c]) / float64(s.Total)
}
