package activity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/tinkerloft/triage/internal/consolidate"
	"github.com/tinkerloft/triage/internal/knowledge"
	"github.com/tinkerloft/triage/internal/model"
)

func newTestStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Open(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedEntry(t *testing.T, store *knowledge.Store, domain, task, action string, at time.Time) {
	t.Helper()
	_, err := store.AppendEntry(context.Background(), model.ActivityLogEntry{
		DomainID:   domain,
		TaskID:     task,
		ActionText: action,
		ResultText: "ok",
		CreatedAt:  at,
	})
	require.NoError(t, err)
}

func TestResolveWindow(t *testing.T) {
	since := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	t.Run("explicit cutoffs pass through", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		activities := NewConsolidationActivities(newTestStore(t))
		env.RegisterActivity(activities.ResolveWindow)

		result, err := env.ExecuteActivity(activities.ResolveWindow, ResolveWindowInput{
			Since: &since,
			Until: &until,
		})
		require.NoError(t, err)

		var w Window
		require.NoError(t, result.Get(&w))
		assert.True(t, w.Since.Equal(since))
		assert.True(t, w.Until.Equal(until))
	})

	t.Run("since defaults to last successful cutoff", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		store := newTestStore(t)
		ctx := context.Background()
		runID, err := store.BeginRun(ctx, since.Add(-24*time.Hour), since, since)
		require.NoError(t, err)
		require.NoError(t, store.FinishRun(ctx, runID, model.RunStatusSucceeded, model.Summary{}, since))

		activities := NewConsolidationActivities(store)
		env.RegisterActivity(activities.ResolveWindow)

		result, err := env.ExecuteActivity(activities.ResolveWindow, ResolveWindowInput{Until: &until})
		require.NoError(t, err)

		var w Window
		require.NoError(t, result.Get(&w))
		assert.True(t, w.Since.Equal(since), "since = previous until, windows stay gap-free")
		assert.True(t, w.Until.Equal(until))
	})

	t.Run("first run starts from the zero time", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		activities := NewConsolidationActivities(newTestStore(t))
		env.RegisterActivity(activities.ResolveWindow)

		result, err := env.ExecuteActivity(activities.ResolveWindow, ResolveWindowInput{Until: &until})
		require.NoError(t, err)

		var w Window
		require.NoError(t, result.Get(&w))
		assert.True(t, w.Since.IsZero())
	})
}

func TestRunConsolidation(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	store := newTestStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	seedEntry(t, store, "infrastructure", "task-1", "scaled nodes", base.Add(time.Hour))
	seedEntry(t, store, "infrastructure", "task-1", "scaled nodes", base.Add(2*time.Hour))
	seedEntry(t, store, "security", "task-2", "patched cve", base.Add(3*time.Hour))

	activities := NewConsolidationActivities(store)
	env.RegisterActivity(activities.RunConsolidation)

	window := Window{Since: base, Until: base.Add(24 * time.Hour)}
	result, err := env.ExecuteActivity(activities.RunConsolidation, window)
	require.NoError(t, err)

	var summary model.Summary
	require.NoError(t, result.Get(&summary))
	assert.Equal(t, 3, summary.EntriesProcessed)
	assert.Equal(t, 2, summary.UnitsCreated)
	assert.Equal(t, []string{"infrastructure", "security"}, summary.DomainsTouched)
	assert.Equal(t, 1, summary.ReinforcedSignals)

	// The run lands in the ledger and its until becomes the next default.
	cutoff, err := store.LastSuccessfulCutoff(context.Background())
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(window.Until))
}

func TestRunConsolidation_EmptyWindow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	store := newTestStore(t)
	activities := NewConsolidationActivities(store)
	env.RegisterActivity(activities.RunConsolidation)

	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	result, err := env.ExecuteActivity(activities.RunConsolidation, Window{Since: base, Until: base.Add(24 * time.Hour)})
	require.NoError(t, err)

	var summary model.Summary
	require.NoError(t, result.Get(&summary))
	assert.Zero(t, summary.EntriesProcessed)
	assert.Zero(t, summary.UnitsCreated)
}

// cancellingSummarizer cancels the run mid-batch, after selection and
// grouping but before the commit.
type cancellingSummarizer struct {
	cancel context.CancelFunc
}

func (s *cancellingSummarizer) SummarizeGroup(_ context.Context, _ consolidate.Group) (string, bool) {
	s.cancel()
	return "", false
}

func TestConsolidate_CancelBeforeCommitLeavesNothing(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	seedEntry(t, store, "infrastructure", "task-1", "scaled nodes", base.Add(time.Hour))
	window := Window{Since: base, Until: base.Add(24 * time.Hour)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ca := NewConsolidationActivities(store)
	ca.Summarizer = &cancellingSummarizer{cancel: cancel}

	_, err := ca.consolidate(ctx, window)
	require.ErrorIs(t, err, context.Canceled)

	// Nothing committed.
	units, err := store.ListFlagged(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, units)

	// The window is safe to repeat.
	plain := NewConsolidationActivities(store)
	summary, err := plain.consolidate(context.Background(), window)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UnitsCreated)
}

type stubSummarizer struct {
	calls int
}

func (s *stubSummarizer) SummarizeGroup(_ context.Context, g consolidate.Group) (string, bool) {
	s.calls++
	return "condensed: " + g.TaskID, true
}

func TestRunConsolidation_SummarizerRewritesContentNotFingerprint(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	store := newTestStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	seedEntry(t, store, "infrastructure", "task-1", "scaled nodes", base.Add(time.Hour))

	summarizer := &stubSummarizer{}
	activities := NewConsolidationActivities(store)
	activities.Summarizer = summarizer
	env.RegisterActivity(activities.RunConsolidation)

	window := Window{Since: base, Until: base.Add(24 * time.Hour)}
	_, err := env.ExecuteActivity(activities.RunConsolidation, window)
	require.NoError(t, err)
	assert.Equal(t, 1, summarizer.calls)

	units, err := store.ListFlagged(context.Background(), "infrastructure")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "condensed: task-1", units[0].Content)

	// Fingerprints come from the raw evidence, so a raw re-run of the same
	// window still dedups against the summarized unit.
	plain := NewConsolidationActivities(store)
	env2 := (&testsuite.WorkflowTestSuite{}).NewTestActivityEnvironment()
	env2.RegisterActivity(plain.RunConsolidation)
	result, err := env2.ExecuteActivity(plain.RunConsolidation, window)
	require.NoError(t, err)

	var summary model.Summary
	require.NoError(t, result.Get(&summary))
	assert.Zero(t, summary.UnitsCreated)
	assert.Zero(t, summary.UnitsUpdated)
}
