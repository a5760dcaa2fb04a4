package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/checkpoint"
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/merge"
	"github.com/shpitdev/researcher-enrichment/internal/prompt"
)

var fallbackCmd = &cobra.Command{
	Use:   "fallback",
	Short: "Run the name-only pass over unresolved records and merge it",
	Long: "Selects records the primary pass left unknown, classifies them from the name alone with the " +
		"fallback oracle (own checkpoint and output, resumable) and writes the merged result with an " +
		"audit trail on every revised record.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		primaryPath := stringFlag(cmd, "primary", cfg.Run.Output)
		mergedPath := stringFlag(cmd, "merged", cfg.FallbackRun.Merged)
		p := pass{
			name:       "fallback",
			oracle:     cfg.Fallback,
			mode:       prompt.NameOnly,
			output:     stringFlag(cmd, "output", cfg.FallbackRun.Output),
			checkpoint: stringFlag(cmd, "checkpoint", cfg.FallbackRun.Checkpoint),
			delay:      durationFlag(cmd, "delay", cfg.FallbackRun.Delay),
		}

		primary, err := readState(primaryPath)
		if err != nil {
			return eris.Wrap(err, "load primary results")
		}
		prior, err := priorPredictions(p.output)
		if err != nil {
			return err
		}

		var todo []enrich.Entity
		for _, e := range merge.Candidates(primary.Results) {
			if _, done := prior[e.Name]; !done {
				todo = append(todo, e)
			}
		}
		zap.L().Info("fallback candidates",
			zap.Int("primary_results", len(primary.Results)),
			zap.Int("already_predicted", len(prior)),
			zap.Int("to_classify", len(todo)),
		)

		preds := prior
		if len(todo) > 0 {
			if err := seedFallbackCheckpoint(p); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sum, err := runPass(ctx, p, todo)
			if sum.RunID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), renderKV(summaryRows(sum)))
			}
			if err != nil {
				if eris.Is(err, context.Canceled) {
					return eris.Wrapf(err, "interrupted after %d records; run again to resume", sum.Processed)
				}
				return err
			}
			fresh, err := readState(p.output)
			if err != nil {
				return eris.Wrap(err, "load fallback results")
			}
			preds = maps.Clone(prior)
			maps.Copy(preds, merge.PredictionsFromRecords(fresh.Results))
		}

		return writeMerged(cmd.OutOrStdout(), primary.Results, preds, mergedPath)
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge existing fallback results onto primary results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		primary, err := readState(stringFlag(cmd, "primary", cfg.Run.Output))
		if err != nil {
			return eris.Wrap(err, "load primary results")
		}
		secondary, err := readState(stringFlag(cmd, "fallback", cfg.FallbackRun.Output))
		if err != nil {
			return eris.Wrap(err, "load fallback results")
		}
		return writeMerged(cmd.OutOrStdout(), primary.Results, merge.PredictionsFromRecords(secondary.Results),
			stringFlag(cmd, "merged", cfg.FallbackRun.Merged))
	},
}

func init() {
	fallbackCmd.Flags().String("primary", "", "primary results file (default run.output)")
	fallbackCmd.Flags().String("output", "", "fallback results file (default fallback_run.output)")
	fallbackCmd.Flags().String("checkpoint", "", "fallback checkpoint file (default fallback_run.checkpoint)")
	fallbackCmd.Flags().String("merged", "", "merged results file (default fallback_run.merged)")
	fallbackCmd.Flags().Duration("delay", 0, "pause between oracle calls (default fallback_run.delay)")

	mergeCmd.Flags().String("primary", "", "primary results file (default run.output)")
	mergeCmd.Flags().String("fallback", "", "fallback results file (default fallback_run.output)")
	mergeCmd.Flags().String("merged", "", "merged results file (default fallback_run.merged)")

	rootCmd.AddCommand(fallbackCmd, mergeCmd)
}

// priorPredictions reads predictions left by an earlier fallback run, if any.
func priorPredictions(path string) (map[string]merge.Prediction, error) {
	st := checkpoint.New(path, checkpoint.Options{Logger: zap.L(), StrictRecovery: true})
	ok, err := st.Exists()
	if err != nil || !ok {
		return map[string]merge.Prediction{}, err
	}
	prev, err := st.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load earlier fallback results")
	}
	return merge.PredictionsFromRecords(prev.Results), nil
}

// seedFallbackCheckpoint carries the answers of earlier fallback runs into the
// checkpoint the next pass resumes from, so the pass output stays cumulative.
// Placeholders are left out and get classified again. An existing checkpoint
// belongs to an interrupted pass and is kept as is.
func seedFallbackCheckpoint(p pass) error {
	cp := openStore(p.checkpoint)
	unlock, err := lockAll(cp)
	if err != nil {
		return err
	}
	defer unlock()

	ok, err := cp.Exists()
	if err != nil || ok {
		return err
	}
	prev := checkpoint.New(p.output, checkpoint.Options{Logger: zap.L(), StrictRecovery: true})
	ok, err = prev.Exists()
	if err != nil || !ok {
		return err
	}
	st, err := prev.Load()
	if err != nil {
		return eris.Wrap(err, "load earlier fallback results")
	}

	var seeded checkpoint.State
	for _, r := range st.Results {
		if r.Summary != enrich.PlaceholderSummary {
			seeded.Append(r)
		}
	}
	if len(seeded.Results) == 0 {
		return nil
	}
	if err := cp.Save(seeded); err != nil {
		return eris.Wrap(err, "seed fallback checkpoint")
	}
	zap.L().Info("seeded fallback checkpoint from earlier results",
		zap.String("checkpoint", p.checkpoint),
		zap.Int("records", len(seeded.Results)),
		zap.Int("dropped_placeholders", len(st.Results)-len(seeded.Results)),
	)
	return nil
}

func writeMerged(w io.Writer, primary []enrich.Record, preds map[string]merge.Prediction, path string) error {
	merged := merge.Merge(primary, preds)

	revised, audited, unresolved := 0, 0, 0
	for i, r := range merged {
		if r.Audit != nil && primary[i].Audit == nil {
			audited++
			if r.Classification != enrich.ClassificationUnknown {
				revised++
			}
		}
		if r.Classification == enrich.ClassificationUnknown {
			unresolved++
		}
	}

	out := openStore(path)
	unlock, err := lockAll(out)
	if err != nil {
		return err
	}
	defer unlock()
	if err := out.Save(checkpoint.State{Results: merged}); err != nil {
		return eris.Wrap(err, "save merged results")
	}

	zap.L().Info("merged fallback predictions",
		zap.String("output", path),
		zap.Int("predictions", len(preds)),
		zap.Int("audited", audited),
		zap.Int("revised", revised),
		zap.Int("still_unknown", unresolved),
	)
	fmt.Fprintln(w, renderKV([][]string{
		{"Merged file", path},
		{"Records", fmt.Sprintf("%d", len(merged))},
		{"Predictions available", fmt.Sprintf("%d", len(preds))},
		{"Audited this merge", fmt.Sprintf("%d", audited)},
		{"Revised from unknown", fmt.Sprintf("%d", revised)},
		{"Still unknown", fmt.Sprintf("%d", unresolved)},
	}))
	return nil
}
