package cleanup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/researcher-enrichment/internal/cleanup"
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

func TestMatcher_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rec     enrich.Record
		wantSig string
	}{
		{"quota in notes", enrich.Record{Notes: "Error: insufficient_quota"}, "insufficient_quota"},
		{"openai quota text", enrich.Record{Notes: "You exceeded your current quota, please check"}, "exceeded your current quota"},
		{"429 in summary", enrich.Record{Summary: "Search model failed: API error: Error code: 429"}, "Error code: 429"},
		{"placeholder", enrich.NewPlaceholder(enrich.Entity{Name: "x"}, enrich.Failure{Kind: enrich.FailureTimeout, Reason: "deadline"}), "API error"},
		{"clean", enrich.Record{Notes: "Found faculty profile", Summary: "Studies soils"}, ""},
		{"malformed placeholder kept", enrich.NewPlaceholder(enrich.Entity{Name: "x"}, enrich.Failure{Kind: enrich.FailureMalformed, Reason: "no JSON"}), ""},
	}

	m := cleanup.NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sig, ok := m.Match(tt.rec)
			assert.Equal(t, tt.wantSig != "", ok)
			assert.Equal(t, tt.wantSig, sig)
		})
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	records := []enrich.Record{
		{Name: "a"},
		{Name: "b", Notes: "rate_limit_error from upstream"},
		{Name: "c"},
	}
	clean, removed := cleanup.Filter(records)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []enrich.Record{{Name: "a"}, {Name: "c"}}, clean)
}

func TestNewMatcher_ExtraSignatures(t *testing.T) {
	t.Parallel()

	rec := enrich.Record{Notes: "upstream overloaded_error"}
	_, ok := cleanup.NewMatcher().Match(rec)
	assert.False(t, ok)

	_, ok = cleanup.NewMatcher("overloaded_error", "  ").Match(rec)
	assert.True(t, ok)
}
