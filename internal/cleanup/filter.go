// Package cleanup excises records tainted by oracle failures from a result file
// and its checkpoint mirror so a later run retries them.
package cleanup

import (
	"strings"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

// DefaultSignatures are substrings that mark a record as produced by a failed
// oracle call rather than a real answer.
var DefaultSignatures = []string{
	// quota
	"insufficient_quota",
	"exceeded your current quota",
	"RESOURCE_EXHAUSTED",
	// rate limit
	"Error code: 429",
	"rate_limit_error",
	"429 Too Many Requests",
	// generic; also matches placeholder notes written by the pipeline
	"API error",
}

// Matcher holds the signature set.
type Matcher struct {
	signatures []string
}

// NewMatcher returns a matcher over DefaultSignatures plus extra. Blank extras
// are ignored.
func NewMatcher(extra ...string) Matcher {
	sigs := append([]string(nil), DefaultSignatures...)
	for _, s := range extra {
		if strings.TrimSpace(s) != "" {
			sigs = append(sigs, s)
		}
	}
	return Matcher{signatures: sigs}
}

// Match returns the first signature found in the record's notes or summary.
func (m Matcher) Match(r enrich.Record) (string, bool) {
	for _, sig := range m.signatures {
		if strings.Contains(r.Notes, sig) || strings.Contains(r.Summary, sig) {
			return sig, true
		}
	}
	return "", false
}

// Filter returns the records with no signature match, in order, and how many
// were dropped.
func (m Matcher) Filter(records []enrich.Record) ([]enrich.Record, int) {
	clean := make([]enrich.Record, 0, len(records))
	for _, r := range records {
		if _, bad := m.Match(r); bad {
			continue
		}
		clean = append(clean, r)
	}
	return clean, len(records) - len(clean)
}

// Filter applies the default signatures.
func Filter(records []enrich.Record) ([]enrich.Record, int) {
	return NewMatcher().Filter(records)
}
