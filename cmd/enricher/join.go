package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/checkpoint"
	"github.com/shpitdev/researcher-enrichment/internal/dataset"
	"github.com/shpitdev/researcher-enrichment/internal/join"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Attach an auxiliary per-researcher count by normalized name",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sourcePath := stringFlag(cmd, "source", cfg.Join.Source)
		if sourcePath == "" {
			return eris.New("join: no auxiliary source; set join.source or pass --source")
		}
		targetPath := stringFlag(cmd, "target", cfg.FallbackRun.Merged)
		outputPath := stringFlag(cmd, "output", cfg.Join.Output)
		limit := cfg.Join.ReportLimit
		if cmd.Flags().Changed("limit") {
			limit, _ = cmd.Flags().GetInt("limit")
		}

		target, err := readState(targetPath)
		if err != nil {
			return eris.Wrap(err, "load join target")
		}
		source, err := dataset.LoadAuxiliary(sourcePath, dataset.AuxiliaryOptions{
			ListKey:  cfg.Join.ListKey,
			FieldKey: cfg.Join.FieldKey,
		})
		if err != nil {
			return err
		}

		res := join.Join(target.Results, source)

		out := openStore(outputPath)
		unlock, err := lockAll(out)
		if err != nil {
			return err
		}
		defer unlock()
		if err := out.Save(checkpoint.State{Results: res.Records}); err != nil {
			return eris.Wrap(err, "save joined results")
		}

		zap.L().Info("join complete",
			zap.String("target", targetPath),
			zap.String("source", sourcePath),
			zap.String("output", outputPath),
			zap.Int("matched", res.Matched),
			zap.Int("total", res.Total),
			zap.Float64("match_rate", res.MatchRate),
		)
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, renderKV(joinRows(res, len(source))))
		if shown := numberedRows(res.Unmatched, limit); len(shown) > 0 {
			fmt.Fprintln(w, renderTable([]string{"#", "Unmatched name"}, shown, []columnAlignment{alignRight, alignLeft}))
		}
		return nil
	},
}

func init() {
	joinCmd.Flags().String("source", "", "auxiliary dataset file (default join.source)")
	joinCmd.Flags().String("target", "", "results file to annotate (default fallback_run.merged)")
	joinCmd.Flags().String("output", "", "joined results file (default join.output)")
	joinCmd.Flags().Int("limit", 0, "unmatched names to list (default join.report_limit)")
	rootCmd.AddCommand(joinCmd)
}

func joinRows(res join.Result, sourceRows int) [][]string {
	return [][]string{
		{"Target records", fmt.Sprintf("%d", res.Total)},
		{"Auxiliary rows", fmt.Sprintf("%d", sourceRows)},
		{"Matched", fmt.Sprintf("%d", res.Matched)},
		{"Match rate", percent(res.MatchRate)},
		{"Unmatched", fmt.Sprintf("%d", len(res.Unmatched))},
	}
}

// numberedRows numbers the first limit names. A limit of zero or less lists
// none.
func numberedRows(names []string, limit int) [][]string {
	if limit <= 0 {
		return nil
	}
	if len(names) > limit {
		names = names[:limit]
	}
	rows := make([][]string, 0, len(names))
	for i, n := range names {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), n})
	}
	return rows
}
