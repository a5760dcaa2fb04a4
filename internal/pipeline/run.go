// Package pipeline drives the sequential enrichment run: resume from the
// checkpoint, classify each pending entity once, and persist after every record.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/checkpoint"
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/enrich/worker"
)

// Checkpoint is the durable progress snapshot a run resumes from.
type Checkpoint interface {
	Load() (checkpoint.State, error)
	Save(checkpoint.State) error
	Discard() error
}

// Publisher receives the complete state after every recorded entity.
type Publisher interface {
	Save(checkpoint.State) error
}

type Options struct {
	// Delay is the fixed pause between oracle calls.
	Delay time.Duration

	RequestTimeout time.Duration
	RateLimitRPS   float64

	Logger *zap.Logger
	// RunID tags log lines. A random id is used when empty.
	RunID string

	// OnRecord is called after each record has been saved and published.
	OnRecord func(done, pending int, rec enrich.Record)
}

// Summary describes one run.
type Summary struct {
	RunID string
	Stats Stats

	Pending    int
	Processed  int
	Skipped    int
	Duplicates int
	Failures   map[enrich.FailureKind]int
	Elapsed    time.Duration
}

// Run classifies every entity not yet in the checkpoint, in input order.
//
// Oracle failures become placeholder records and never stop the run. Storage
// errors and context cancellation do; the entity in flight at cancellation is
// not recorded and the checkpoint is kept for the next run.
func Run(ctx context.Context, entities []enrich.Entity, oracle enrich.Oracle, cp Checkpoint, out Publisher, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.With(zap.String("run", runID))
	start := time.Now()

	state, err := cp.Load()
	if err != nil {
		return Summary{RunID: runID}, eris.Wrap(err, "load checkpoint")
	}

	pending, skipped, dups := plan(entities, checkpoint.AlreadyProcessed(state))
	summary := Summary{
		RunID:      runID,
		Pending:    len(pending),
		Skipped:    skipped,
		Duplicates: dups,
		Failures:   make(map[enrich.FailureKind]int),
	}
	logger.Info("run start",
		zap.Int("entities", len(entities)),
		zap.Int("already_processed", skipped),
		zap.Int("duplicates", dups),
		zap.Int("pending", len(pending)),
		zap.Duration("delay", opts.Delay),
	)

	if len(pending) == 0 {
		if err := out.Save(state); err != nil {
			return summary, eris.Wrap(err, "publish output")
		}
		summary.Stats = Summarize(state.Results)
		summary.Elapsed = time.Since(start)
		logger.Info("nothing pending; published existing results", zap.Int("results", len(state.Results)))
		return summary, nil
	}

	invoker := worker.New(newTracedOracle(oracle, logger), worker.Options{
		RequestTimeout: opts.RequestTimeout,
		RateLimitRPS:   opts.RateLimitRPS,
	})

	for i, e := range pending {
		outcome := invoker.Classify(ctx, e.Name, e.Affiliations)
		if f := outcome.Failure; f != nil && f.Kind == enrich.FailureCanceled && ctx.Err() != nil {
			logger.Warn("run interrupted; in-flight entity not recorded",
				zap.String("entity", e.Name),
				zap.Int("recorded", summary.Processed),
			)
			summary.Elapsed = time.Since(start)
			return summary, ctxErr(ctx)
		}

		rec := enrich.RecordFor(e, outcome)
		state.Append(rec)
		if err := cp.Save(state); err != nil {
			return summary, eris.Wrapf(err, "save checkpoint after %q", e.Name)
		}
		if err := out.Save(state); err != nil {
			return summary, eris.Wrapf(err, "publish output after %q", e.Name)
		}

		summary.Processed++
		if f := outcome.Failure; f != nil {
			summary.Failures[f.Kind]++
		}
		if opts.OnRecord != nil {
			opts.OnRecord(i+1, len(pending), rec)
		}

		if i < len(pending)-1 {
			if err := worker.Pace(ctx, opts.Delay); err != nil {
				logger.Warn("run interrupted between entities", zap.Int("recorded", summary.Processed))
				summary.Elapsed = time.Since(start)
				return summary, err
			}
		}
	}

	summary.Stats = Summarize(state.Results)
	summary.Elapsed = time.Since(start)
	logger.Info("run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("results", summary.Stats.Total),
		zap.Float64("success_rate", summary.Stats.SuccessRate),
		zap.Float64("avg_evidence", summary.Stats.AverageEvidence),
		zap.Any("failures", summary.Failures),
		zap.Duration("elapsed", summary.Elapsed.Round(time.Millisecond)),
	)

	if err := cp.Discard(); err != nil {
		return summary, eris.Wrap(err, "discard checkpoint")
	}
	return summary, nil
}

// plan keeps input order and drops names already recorded or repeated in the
// input. Matching is exact.
func plan(entities []enrich.Entity, done map[string]struct{}) (pending []enrich.Entity, skipped, duplicates int) {
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if _, ok := done[e.Name]; ok {
			skipped++
			continue
		}
		if _, ok := seen[e.Name]; ok {
			duplicates++
			continue
		}
		seen[e.Name] = struct{}{}
		pending = append(pending, e)
	}
	return pending, skipped, duplicates
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
