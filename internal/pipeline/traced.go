package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

// tracedOracle logs each oracle request and its outcome.
type tracedOracle struct {
	next   enrich.Oracle
	logger *zap.Logger
}

func newTracedOracle(next enrich.Oracle, logger *zap.Logger) *tracedOracle {
	return &tracedOracle{next: next, logger: logger}
}

func (t *tracedOracle) Classify(ctx context.Context, name string, affiliations []string) enrich.Outcome {
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Debug("oracle request",
		zap.String("entity", name),
		zap.Strings("affiliations", affiliations),
		zap.String("deadline_in", deadlineIn),
	)

	start := time.Now()
	out := t.next.Classify(ctx, name, affiliations)
	elapsed := time.Since(start).Round(time.Millisecond)

	if f := out.Failure; f != nil {
		t.logger.Warn("oracle response",
			zap.String("entity", name),
			zap.Duration("duration", elapsed),
			zap.String("status", "error"),
			zap.String("kind", string(f.Kind)),
			zap.String("reason", f.Reason),
		)
		return out
	}
	t.logger.Info("oracle response",
		zap.String("entity", name),
		zap.Duration("duration", elapsed),
		zap.String("status", "ok"),
		zap.String("classification", string(out.Response.Classification)),
		zap.String("confidence", string(out.Response.Confidence)),
		zap.Int("evidence", out.Response.EvidenceCount),
	)
	return out
}
