package cleanup

import (
	"maps"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/checkpoint"
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

// ErrInconsistent means the two files disagree after a clean. It needs manual
// reconciliation.
var ErrInconsistent = eris.New("checkpoint and output disagree after filtering")

// ErrNothingToClean means neither file exists.
var ErrNothingToClean = eris.New("no output or checkpoint to clean")

// Report describes one clean.
type Report struct {
	Source           string
	Before           int
	After            int
	Removed          []string
	SeededCheckpoint bool
}

// Clean filters the checkpoint and the output as one operation.
//
// The checkpoint is the source when it exists, since a run writes it before the
// output; otherwise the output is. The filtered state is staged for both files
// before either is replaced. When records were removed and no checkpoint
// existed, one is created so the next run retries exactly the removed names.
func Clean(output, cp *checkpoint.Store, m Matcher, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.L()
	}

	for _, s := range []*checkpoint.Store{cp, output} {
		if err := s.Lock(); err != nil {
			return Report{}, err
		}
		defer func(s *checkpoint.Store) { _ = s.Unlock() }(s)
	}

	cpExists, err := cp.Exists()
	if err != nil {
		return Report{}, err
	}
	outExists, err := output.Exists()
	if err != nil {
		return Report{}, err
	}
	if !cpExists && !outExists {
		return Report{}, ErrNothingToClean
	}

	source := output
	if cpExists {
		source = cp
	}
	state, err := source.Load()
	if err != nil {
		return Report{}, eris.Wrapf(err, "load %s", source.Path())
	}
	if cpExists && outExists {
		warnIfDiverged(logger, cp, output, state)
	}

	report := Report{Source: source.Path(), Before: len(state.Results), Removed: []string{}}
	clean := make([]enrich.Record, 0, len(state.Results))
	for _, r := range state.Results {
		if sig, bad := m.Match(r); bad {
			logger.Info("removing record with oracle failure", zap.String("entity", r.Name), zap.String("signature", sig))
			report.Removed = append(report.Removed, r.Name)
			continue
		}
		clean = append(clean, r)
	}
	report.After = len(clean)

	if len(report.Removed) == 0 && !cpExists {
		logger.Info("nothing to remove", zap.String("source", report.Source), zap.Int("records", report.Before))
		return report, nil
	}

	filtered := checkpoint.State{Results: clean}
	if err := stageAndCommit(filtered, cp, output); err != nil {
		return report, err
	}
	report.SeededCheckpoint = !cpExists

	if err := verify(cp, output); err != nil {
		logger.Error("checkpoint and output diverged after clean", zap.Error(err))
		return report, err
	}
	logger.Info("clean complete",
		zap.String("source", report.Source),
		zap.Int("before", report.Before),
		zap.Int("after", report.After),
		zap.Int("removed", len(report.Removed)),
		zap.Bool("seeded_checkpoint", report.SeededCheckpoint),
	)
	return report, nil
}

func stageAndCommit(st checkpoint.State, stores ...*checkpoint.Store) error {
	staged := make([]*checkpoint.Staged, 0, len(stores))
	abort := func() {
		for _, s := range staged {
			s.Abort()
		}
	}
	for _, s := range stores {
		p, err := s.Stage(st)
		if err != nil {
			abort()
			return eris.Wrapf(err, "stage %s", s.Path())
		}
		staged = append(staged, p)
	}
	for i, p := range staged {
		if err := p.Commit(); err != nil {
			for _, rest := range staged[i+1:] {
				rest.Abort()
			}
			return eris.Wrapf(ErrInconsistent, "commit %s: %v", stores[i].Path(), err)
		}
	}
	return nil
}

func verify(cp, output *checkpoint.Store) error {
	cs, err := cp.Load()
	if err != nil {
		return eris.Wrap(err, "reload checkpoint")
	}
	outSt, err := output.Load()
	if err != nil {
		return eris.Wrap(err, "reload output")
	}
	if cs.ProcessedCount != outSt.ProcessedCount || !maps.Equal(checkpoint.AlreadyProcessed(cs), checkpoint.AlreadyProcessed(outSt)) {
		return eris.Wrapf(ErrInconsistent, "checkpoint has %d records, output has %d", cs.ProcessedCount, outSt.ProcessedCount)
	}
	return nil
}

func warnIfDiverged(logger *zap.Logger, cp, output *checkpoint.Store, cpState checkpoint.State) {
	outState, err := output.Load()
	if err != nil {
		logger.Warn("could not read output for comparison", zap.Error(err))
		return
	}
	if !maps.Equal(checkpoint.AlreadyProcessed(cpState), checkpoint.AlreadyProcessed(outState)) {
		logger.Warn("output differs from checkpoint before clean; checkpoint wins",
			zap.String("checkpoint", cp.Path()),
			zap.String("output", output.Path()),
			zap.Int("checkpoint_records", cpState.ProcessedCount),
			zap.Int("output_records", outState.ProcessedCount),
		)
	}
}
