// Package merge layers a name-only fallback classification onto records the
// primary pass left unknown, recording an audit trail for every attempt.
package merge

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/identity"
)

// Method names the fallback technique in audit trails.
const Method = "name_pattern_analysis"

// Prediction is the fallback pass's answer for one name.
type Prediction struct {
	Classification enrich.Classification
	Confidence     enrich.Confidence
	Reasoning      string
}

// Disclaimer is the note appended to every record the fallback touched.
func Disclaimer(p Prediction) string {
	return fmt.Sprintf(
		"NAME-BASED ANALYSIS: classification %q is inferred from name-pattern analysis only, not from verified evidence about this individual (confidence: %s).",
		orUnknown(p.Classification), orLow(p.Confidence),
	)
}

// Merge returns a copy of primary with fallback predictions applied to
// unresolved records. A record is unresolved when its classification is
// unknown and it carries no audit trail yet. Predictions are matched by exact
// name first, then by normalized name. Merge is idempotent.
func Merge(primary []enrich.Record, secondary map[string]Prediction) []enrich.Record {
	idx := newIndex(secondary)
	out := make([]enrich.Record, len(primary))
	for i, r := range primary {
		r = clone(r)
		if r.Classification == enrich.ClassificationUnknown && r.Audit == nil {
			if p, ok := idx.lookup(r.Name); ok {
				r = apply(r, p)
			}
		}
		out[i] = r
	}
	return out
}

func apply(r enrich.Record, p Prediction) enrich.Record {
	revised := orUnknown(p.Classification)
	conf := orLow(p.Confidence)
	disclaimer := Disclaimer(p)

	original := r.Classification
	if revised != enrich.ClassificationUnknown {
		r.Classification = revised
		r.Confidence = conf
	}
	switch {
	case strings.Contains(r.Notes, disclaimer):
	case strings.TrimSpace(r.Notes) == "":
		r.Notes = disclaimer
	default:
		r.Notes = r.Notes + " | " + disclaimer
	}
	r.Audit = &enrich.AuditTrail{
		Method:                 Method,
		OriginalClassification: original,
		RevisedClassification:  revised,
		Confidence:             conf,
		Reasoning:              p.Reasoning,
		Disclaimer:             disclaimer,
	}
	return r
}

type index struct {
	exact      map[string]Prediction
	normalized map[string]Prediction
}

func newIndex(secondary map[string]Prediction) index {
	names := make([]string, 0, len(secondary))
	for name := range secondary {
		names = append(names, name)
	}
	sort.Strings(names)

	idx := index{exact: secondary, normalized: make(map[string]Prediction, len(secondary))}
	for _, name := range names {
		key := identity.Normalize(name)
		if _, taken := idx.normalized[key]; !taken {
			idx.normalized[key] = secondary[name]
		}
	}
	return idx
}

func (idx index) lookup(name string) (Prediction, bool) {
	if p, ok := idx.exact[name]; ok {
		return p, true
	}
	p, ok := idx.normalized[identity.Normalize(name)]
	return p, ok
}

// Candidates lists the entities a fallback pass should classify.
func Candidates(records []enrich.Record) []enrich.Entity {
	var out []enrich.Entity
	for _, r := range records {
		if r.Classification == enrich.ClassificationUnknown && r.Audit == nil {
			out = append(out, enrich.Entity{Name: r.Name, Affiliations: r.Affiliations})
		}
	}
	return out
}

// PredictionsFromRecords converts fallback pass output into predictions.
// Placeholders from failed calls are skipped so those names stay unresolved
// and can be retried.
func PredictionsFromRecords(records []enrich.Record) map[string]Prediction {
	out := make(map[string]Prediction, len(records))
	for _, r := range records {
		if r.Summary == enrich.PlaceholderSummary {
			continue
		}
		out[r.Name] = Prediction{
			Classification: r.Classification,
			Confidence:     r.Confidence,
			Reasoning:      r.Notes,
		}
	}
	return out
}

func clone(r enrich.Record) enrich.Record {
	r.Affiliations = slices.Clone(r.Affiliations)
	r.Topics = slices.Clone(r.Topics)
	if r.Audit != nil {
		a := *r.Audit
		r.Audit = &a
	}
	return r
}

func orUnknown(c enrich.Classification) enrich.Classification {
	if c == "" {
		return enrich.ClassificationUnknown
	}
	return c
}

func orLow(c enrich.Confidence) enrich.Confidence {
	if c == "" {
		return enrich.ConfidenceLow
	}
	return c
}
