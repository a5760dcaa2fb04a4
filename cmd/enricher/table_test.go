package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/pipeline"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"Alice", "3"}, {"Bob"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "Count", "Alice", "Bob", "╭"} {
		assert.Contains(t, out, want)
	}
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil), "no headers renders nothing")
}

func TestStatsRows(t *testing.T) {
	s := pipeline.Summarize([]enrich.Record{
		{Name: "A", Classification: enrich.ClassificationFemale, SearchSuccessful: true, EvidenceCount: 4},
		{Name: "B", Classification: enrich.ClassificationUnknown},
		{Name: "C", Classification: "legacy"},
	})

	var labels []string
	values := map[string]string{}
	for _, r := range statsRows(s) {
		labels = append(labels, r[0])
		values[r[0]] = r[1]
	}
	assert.Equal(t, []string{
		"Results", "Classified female", "Classified unknown", "Classified legacy",
		"Search successful", "Average evidence", "Last processed",
	}, labels)
	assert.Equal(t, "1 (33.3%)", values["Search successful"])
	assert.Equal(t, "C", values["Last processed"])
}

func TestNumberedRows(t *testing.T) {
	assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}}, numberedRows([]string{"a", "b", "c"}, 2))
	assert.Nil(t, numberedRows([]string{"a"}, 0), "limit 0 lists nothing")
}

func TestSummaryRowsListsFailureKinds(t *testing.T) {
	rows := summaryRows(pipeline.Summary{
		RunID:    "r1",
		Failures: map[enrich.FailureKind]int{enrich.FailureTimeout: 2, enrich.FailureQuota: 1},
	})
	var got []string
	for _, r := range rows {
		if strings.HasPrefix(r[0], "Failed") {
			got = append(got, r[0]+"="+r[1])
		}
	}
	assert.Equal(t, []string{"Failed (quota)=1", "Failed (timeout)=2"}, got)
}
