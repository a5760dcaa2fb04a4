package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/researcher-enrichment/internal/checkpoint"
	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/pipeline"
)

type recordingOracle struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, name string) enrich.Outcome
}

func (o *recordingOracle) Classify(ctx context.Context, name string, _ []string) enrich.Outcome {
	o.mu.Lock()
	o.calls = append(o.calls, name)
	o.mu.Unlock()
	return o.fn(ctx, name)
}

func byName(m map[string]enrich.Classification) *recordingOracle {
	return &recordingOracle{fn: func(_ context.Context, name string) enrich.Outcome {
		c, ok := m[name]
		if !ok {
			return enrich.Fail(enrich.FailureTimeout, "context deadline exceeded")
		}
		return enrich.Success(enrich.Response{
			Classification:   c,
			Confidence:       enrich.ConfidenceHigh,
			EvidenceCount:    2,
			SearchSuccessful: true,
		})
	}}
}

func entities(names ...string) []enrich.Entity {
	out := make([]enrich.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, enrich.Entity{Name: n})
	}
	return out
}

func stores(t *testing.T) (*checkpoint.Store, *checkpoint.Store) {
	t.Helper()
	dir := t.TempDir()
	return checkpoint.New(filepath.Join(dir, "checkpoint.json"), checkpoint.Options{}),
		checkpoint.New(filepath.Join(dir, "output.json"), checkpoint.Options{})
}

func names(st checkpoint.State) []string {
	out := make([]string, 0, len(st.Results))
	for _, r := range st.Results {
		out = append(out, r.Name)
	}
	return out
}

func TestRun_FailureBecomesPlaceholder(t *testing.T) {
	cp, out := stores(t)
	oracle := byName(map[string]enrich.Classification{
		"Alice": enrich.ClassificationFemale,
		"Carol": enrich.ClassificationMale,
	})

	summary, err := pipeline.Run(context.Background(), entities("Alice", "Bob", "Carol"), oracle, cp, out, pipeline.Options{})
	require.NoError(t, err)

	st, err := out.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, st.ProcessedCount)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(st))

	bob := st.Results[1]
	assert.Equal(t, enrich.ClassificationUnknown, bob.Classification)
	assert.Equal(t, enrich.ConfidenceLow, bob.Confidence)
	assert.False(t, bob.SearchSuccessful)
	assert.NotEmpty(t, bob.Notes)
	assert.Equal(t, enrich.ClassificationFemale, st.Results[0].Classification)
	assert.Equal(t, enrich.ClassificationMale, st.Results[2].Classification)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Failures[enrich.FailureTimeout])
	assert.Equal(t, 1, summary.Stats.ByClassification[enrich.ClassificationUnknown])

	ok, err := cp.Exists()
	require.NoError(t, err)
	assert.False(t, ok, "checkpoint should be discarded after completion")
}

func TestRun_OracleReportedCancelIsRecordedNotFatal(t *testing.T) {
	cp, out := stores(t)
	oracle := &recordingOracle{fn: func(_ context.Context, name string) enrich.Outcome {
		if name == "Bob" {
			return enrich.FailWith(context.Canceled)
		}
		return enrich.Success(enrich.Response{Classification: enrich.ClassificationFemale})
	}}

	summary, err := pipeline.Run(context.Background(), entities("Alice", "Bob", "Carol"), oracle, cp, out, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, oracle.calls)

	st, err := out.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Bob", "Carol"}, names(st))
	assert.Equal(t, enrich.PlaceholderSummary, st.Results[1].Summary)
	assert.Equal(t, 1, summary.Failures[enrich.FailureTransport])
	assert.Zero(t, summary.Failures[enrich.FailureCanceled])
}

func TestRun_ResumeSkipsProcessedNames(t *testing.T) {
	cp, out := stores(t)
	var seeded checkpoint.State
	seeded.Append(enrich.NewRecord(enrich.Entity{Name: "Alice"}, enrich.Response{Classification: enrich.ClassificationFemale}))
	seeded.Append(enrich.NewPlaceholder(enrich.Entity{Name: "Bob"}, enrich.Failure{Kind: enrich.FailureTimeout, Reason: "slow"}))
	require.NoError(t, cp.Save(seeded))

	oracle := byName(map[string]enrich.Classification{"Carol": enrich.ClassificationMale})
	summary, err := pipeline.Run(context.Background(), entities("Alice", "Bob", "Carol"), oracle, cp, out, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol"}, oracle.calls)
	assert.Equal(t, 2, summary.Skipped)

	st, err := out.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, st.ProcessedCount)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(st))
}

func TestRun_CountMatchesResultsAfterEveryEntity(t *testing.T) {
	cp, out := stores(t)
	oracle := byName(map[string]enrich.Classification{
		"A": enrich.ClassificationFemale,
		"B": enrich.ClassificationMale,
		"C": enrich.ClassificationFemale,
		"D": enrich.ClassificationMale,
	})

	var checked int
	_, err := pipeline.Run(context.Background(), entities("A", "B", "C", "D"), oracle, cp, out, pipeline.Options{
		OnRecord: func(done, _ int, _ enrich.Record) {
			for _, s := range []*checkpoint.Store{cp, out} {
				st, err := s.Load()
				require.NoError(t, err)
				assert.Equal(t, done, st.ProcessedCount, "%s count after %d", s.Path(), done)
				assert.Len(t, st.Results, done, "%s results after %d", s.Path(), done)
			}
			checked++
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, checked)
}

func TestRun_NothingPendingPublishesWithoutCalls(t *testing.T) {
	cp, out := stores(t)
	var seeded checkpoint.State
	seeded.Append(enrich.NewRecord(enrich.Entity{Name: "Alice"}, enrich.Response{}))
	require.NoError(t, cp.Save(seeded))

	oracle := byName(nil)
	_, err := pipeline.Run(context.Background(), entities("Alice"), oracle, cp, out, pipeline.Options{})
	require.NoError(t, err)
	assert.Empty(t, oracle.calls)

	st, err := out.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, st.ProcessedCount)
}

func TestRun_DuplicateInputNamesClassifiedOnce(t *testing.T) {
	cp, out := stores(t)
	oracle := byName(map[string]enrich.Classification{"Alice": enrich.ClassificationFemale, "alice": enrich.ClassificationFemale})

	summary, err := pipeline.Run(context.Background(), entities("Alice", "Alice", "alice"), oracle, cp, out, pipeline.Options{})
	require.NoError(t, err)
	// Dedup is exact: "alice" is a different entity from "Alice".
	assert.Equal(t, []string{"Alice", "alice"}, oracle.calls)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestRun_CancelKeepsCheckpointForResume(t *testing.T) {
	cp, out := stores(t)
	ctx, cancel := context.WithCancel(context.Background())

	first := &recordingOracle{fn: func(ctx context.Context, name string) enrich.Outcome {
		if name == "B" {
			cancel()
			return enrich.FailWith(ctx.Err())
		}
		return enrich.Success(enrich.Response{Classification: enrich.ClassificationMale})
	}}
	_, err := pipeline.Run(ctx, entities("A", "B", "C"), first, cp, out, pipeline.Options{})
	require.ErrorIs(t, err, context.Canceled)

	st, err := cp.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(st))

	second := byName(map[string]enrich.Classification{"B": enrich.ClassificationFemale, "C": enrich.ClassificationMale})
	_, err = pipeline.Run(context.Background(), entities("A", "B", "C"), second, cp, out, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, second.calls)
}

type failingPublisher struct{}

func (failingPublisher) Save(checkpoint.State) error { return errors.New("disk full") }

func TestRun_PublishErrorStopsRun(t *testing.T) {
	cp, _ := stores(t)
	oracle := byName(map[string]enrich.Classification{"A": enrich.ClassificationMale, "B": enrich.ClassificationMale})

	_, err := pipeline.Run(context.Background(), entities("A", "B"), oracle, cp, failingPublisher{}, pipeline.Options{})
	require.Error(t, err)
	assert.Equal(t, []string{"A"}, oracle.calls)

	ok, err := cp.Exists()
	require.NoError(t, err)
	assert.True(t, ok, "checkpoint should survive a failed run")
}

func TestSummarize(t *testing.T) {
	s := pipeline.Summarize([]enrich.Record{
		{Name: "a", Classification: enrich.ClassificationFemale, SearchSuccessful: true, EvidenceCount: 3},
		{Name: "b", Classification: enrich.ClassificationMale, SearchSuccessful: true, EvidenceCount: 1},
		{Name: "c", Classification: enrich.ClassificationUnknown},
		{Name: "d", Classification: enrich.ClassificationFemale},
	})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Successful)
	assert.InDelta(t, 0.5, s.SuccessRate, 1e-9)
	assert.InDelta(t, 1.0, s.AverageEvidence, 1e-9)
	assert.InDelta(t, 0.5, s.Share(enrich.ClassificationFemale), 1e-9)
	assert.Equal(t, "d", s.LastProcessed)

	empty := pipeline.Summarize(nil)
	assert.Zero(t, empty.SuccessRate)
	assert.Zero(t, empty.AverageEvidence)
}
