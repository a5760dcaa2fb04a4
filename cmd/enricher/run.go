package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/config"
	"github.com/shpitdev/researcher-enrichment/internal/dataset"
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/oracle"
	"github.com/shpitdev/researcher-enrichment/internal/pipeline"
	"github.com/shpitdev/researcher-enrichment/internal/prompt"
)

// pass is one orchestrator run over a set of entities.
type pass struct {
	name       string
	oracle     config.OracleConfig
	mode       prompt.Mode
	output     string
	checkpoint string
	delay      time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify every researcher not yet recorded in the checkpoint",
	Long: "Runs the web-search pass. Progress is checkpointed after every record, so an interrupted run " +
		"resumes where it stopped when started again with the same files.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := stringFlag(cmd, "input", cfg.Run.Input)
		entities, err := dataset.LoadEntities(input, cfg.Input.ListKeys...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := pass{
			name:       "primary",
			oracle:     cfg.Oracle,
			mode:       prompt.Search,
			output:     stringFlag(cmd, "output", cfg.Run.Output),
			checkpoint: stringFlag(cmd, "checkpoint", cfg.Run.Checkpoint),
			delay:      durationFlag(cmd, "delay", cfg.Run.Delay),
		}
		sum, err := runPass(ctx, p, entities)
		if sum.RunID != "" {
			fmt.Fprintln(cmd.OutOrStdout(), renderKV(summaryRows(sum)))
		}
		if err != nil {
			if eris.Is(err, context.Canceled) {
				return eris.Wrapf(err, "interrupted after %d records; run again to resume", sum.Processed)
			}
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("input", "", "entity file, JSON or CSV (default run.input)")
	runCmd.Flags().String("output", "", "published results file (default run.output)")
	runCmd.Flags().String("checkpoint", "", "checkpoint file (default run.checkpoint)")
	runCmd.Flags().Duration("delay", 0, "pause between oracle calls (default run.delay)")
	rootCmd.AddCommand(runCmd)
}

// runPass builds the pass's oracle, takes both file locks and drives the
// orchestrator.
func runPass(ctx context.Context, p pass, entities []enrich.Entity) (pipeline.Summary, error) {
	orc, err := oracle.New(ctx, oracle.Config{
		Provider: p.oracle.Provider,
		Model:    p.oracle.Model,
		APIKey:   cfg.APIKey(p.oracle.Provider),
		BaseURL:  p.oracle.BaseURL,
		Mode:     p.mode,
	})
	if err != nil {
		return pipeline.Summary{}, eris.Wrapf(err, "%s oracle", p.name)
	}

	cp := openStore(p.checkpoint)
	out := openStore(p.output)
	unlock, err := lockAll(cp, out)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer unlock()

	logger := zap.L().With(zap.String("pass", p.name))
	return pipeline.Run(ctx, entities, orc, cp, out, pipeline.Options{
		Delay:          p.delay,
		RequestTimeout: p.oracle.RequestTimeout,
		RateLimitRPS:   p.oracle.RateLimitRPS,
		Logger:         logger,
		OnRecord: func(done, pending int, rec enrich.Record) {
			logger.Info("recorded",
				zap.String("entity", rec.Name),
				zap.String("classification", string(rec.Classification)),
				zap.String("confidence", string(rec.Confidence)),
				zap.Int("evidence", rec.EvidenceCount),
				zap.String("progress", fmt.Sprintf("%d/%d", done, pending)),
			)
		},
	})
}

func summaryRows(s pipeline.Summary) [][]string {
	rows := [][]string{
		{"Run", s.RunID},
		{"Pending", fmt.Sprintf("%d", s.Pending)},
		{"Processed", fmt.Sprintf("%d", s.Processed)},
		{"Already processed", fmt.Sprintf("%d", s.Skipped)},
		{"Duplicate names", fmt.Sprintf("%d", s.Duplicates)},
	}
	kinds := make([]string, 0, len(s.Failures))
	for k := range s.Failures {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		rows = append(rows, []string{"Failed (" + k + ")", fmt.Sprintf("%d", s.Failures[enrich.FailureKind(k)])})
	}
	rows = append(rows, []string{"Elapsed", s.Elapsed.Round(time.Second).String()})
	if s.Stats.Total > 0 {
		rows = append(rows, statsRows(s.Stats)...)
	}
	return rows
}
