package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/cleanup"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove records left by failed oracle calls from results and checkpoint",
	Long: "Drops every record whose notes or summary carry an oracle failure signature, from the " +
		"results file and its checkpoint together, so the next run retries exactly those names.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		outputPath, cpPath := cfg.Run.Output, cfg.Run.Checkpoint
		if fb, _ := cmd.Flags().GetBool("fallback"); fb {
			outputPath, cpPath = cfg.FallbackRun.Output, cfg.FallbackRun.Checkpoint
		}
		outputPath = stringFlag(cmd, "output", outputPath)
		cpPath = stringFlag(cmd, "checkpoint", cpPath)

		m := cleanup.NewMatcher(cfg.Clean.ExtraSignatures...)
		report, err := cleanup.Clean(openStore(outputPath), openStore(cpPath), m, zap.L())
		if err != nil {
			if eris.Is(err, cleanup.ErrNothingToClean) {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to clean: neither %s nor %s exists.\n", outputPath, cpPath)
				return nil
			}
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, renderKV([][]string{
			{"Source", report.Source},
			{"Before", fmt.Sprintf("%d", report.Before)},
			{"After", fmt.Sprintf("%d", report.After)},
			{"Removed", fmt.Sprintf("%d", len(report.Removed))},
			{"Checkpoint seeded", fmt.Sprintf("%t", report.SeededCheckpoint)},
		}))
		if len(report.Removed) > 0 {
			fmt.Fprintln(w, renderTable([]string{"#", "Removed name"}, numberedRows(report.Removed, len(report.Removed)),
				[]columnAlignment{alignRight, alignLeft}))
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().Bool("fallback", false, "clean the fallback pass files instead of the primary ones")
	cleanCmd.Flags().String("output", "", "results file (default run.output)")
	cleanCmd.Flags().String("checkpoint", "", "checkpoint file (default run.checkpoint)")
	rootCmd.AddCommand(cleanCmd)
}
