package main

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/pipeline"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderKV renders two-column label/value tables.
func renderKV(rows [][]string) string {
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

// statsRows describes a result set, one row per metric.
func statsRows(s pipeline.Stats) [][]string {
	rows := [][]string{
		{"Results", fmt.Sprintf("%d", s.Total)},
	}
	for _, c := range classificationOrder(s) {
		rows = append(rows, []string{
			"Classified " + string(c),
			fmt.Sprintf("%d (%s)", s.ByClassification[c], percent(s.Share(c))),
		})
	}
	rows = append(rows,
		[]string{"Search successful", fmt.Sprintf("%d (%s)", s.Successful, percent(s.SuccessRate))},
		[]string{"Average evidence", fmt.Sprintf("%.1f", s.AverageEvidence)},
	)
	if s.LastProcessed != "" {
		rows = append(rows, []string{"Last processed", s.LastProcessed})
	}
	return rows
}

// classificationOrder lists the fixed labels first, then anything else found
// in older files, alphabetically.
func classificationOrder(s pipeline.Stats) []enrich.Classification {
	known := []enrich.Classification{enrich.ClassificationFemale, enrich.ClassificationMale, enrich.ClassificationUnknown}
	out := make([]enrich.Classification, 0, len(s.ByClassification))
	seen := make(map[enrich.Classification]bool, len(known))
	for _, c := range known {
		seen[c] = true
		if s.ByClassification[c] > 0 {
			out = append(out, c)
		}
	}
	var extra []enrich.Classification
	for c := range s.ByClassification {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
