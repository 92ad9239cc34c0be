package knowledge_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/triage/internal/consolidate"
	"github.com/tinkerloft/triage/internal/knowledge"
	"github.com/tinkerloft/triage/internal/model"
)

func openStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Open(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func appendEntry(t *testing.T, store *knowledge.Store, domain, task, action, result string, at time.Time) model.ActivityLogEntry {
	t.Helper()
	entry, err := store.AppendEntry(context.Background(), model.ActivityLogEntry{
		DomainID:   domain,
		TaskID:     task,
		ActionText: action,
		ResultText: result,
		CreatedAt:  at,
	})
	require.NoError(t, err)
	return entry
}

func consolidateWindow(t *testing.T, store *knowledge.Store, since, until time.Time) model.Summary {
	t.Helper()
	ctx := context.Background()
	entries, err := store.SelectEntries(ctx, since, until)
	require.NoError(t, err)
	summary, err := store.ApplyGroups(ctx, consolidate.GroupEntries(entries), until)
	require.NoError(t, err)
	return summary
}

func TestAppendEntry_Validation(t *testing.T) {
	store := openStore(t)

	_, err := store.AppendEntry(context.Background(), model.ActivityLogEntry{TaskID: "t"})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = store.AppendEntry(context.Background(), model.ActivityLogEntry{DomainID: "d"})
	require.ErrorAs(t, err, &ve)
}

func TestSelectEntries_HalfOpenWindow(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	appendEntry(t, store, "infrastructure", "task-1", "before", "ok", base.Add(-time.Second))
	appendEntry(t, store, "infrastructure", "task-1", "at start", "ok", base)
	appendEntry(t, store, "infrastructure", "task-1", "inside", "ok", base.Add(time.Hour))
	appendEntry(t, store, "infrastructure", "task-1", "at end", "ok", base.Add(24*time.Hour))

	entries, err := store.SelectEntries(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "at start", entries[0].ActionText)
	assert.Equal(t, "inside", entries[1].ActionText)

	// Back-to-back windows see the boundary entry exactly once.
	next, err := store.SelectEntries(context.Background(), base.Add(24*time.Hour), base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "at end", next[0].ActionText)
}

func TestSeedDomains_Idempotent(t *testing.T) {
	store := openStore(t)
	domains := []model.KnowledgeDomain{
		{ID: "infrastructure", Name: "Infrastructure", Description: "infra work"},
		{ID: "security", Name: "Security"},
	}

	require.NoError(t, store.SeedDomains(context.Background(), domains))
	require.NoError(t, store.SeedDomains(context.Background(), domains))

	got, err := store.ListDomains(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "infrastructure", got[0].ID)
}

func TestApplyGroups_IdenticalEvidenceCreatesOneUnit(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		appendEntry(t, store, "infrastructure", "task-1", "scaled nodes", "ok", base.Add(time.Duration(i)*time.Hour))
	}
	appendEntry(t, store, "security", "task-2", "patched cve", "ok", base)
	appendEntry(t, store, "ml", "task-3", "retrained model", "ok", base)

	summary := consolidateWindow(t, store, base, base.Add(24*time.Hour))

	assert.Equal(t, 5, summary.EntriesProcessed)
	assert.Equal(t, 3, summary.UnitsCreated)
	assert.Equal(t, 0, summary.UnitsUpdated)
	assert.Equal(t, []string{"infrastructure", "ml", "security"}, summary.DomainsTouched)
	assert.Equal(t, 1, summary.ReinforcedSignals)

	units, err := store.ListFlagged(context.Background(), "infrastructure")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 1, units[0].Version)
	assert.True(t, units[0].Flagged)
}

func TestApplyGroups_RerunIsNoOp(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	appendEntry(t, store, "infrastructure", "task-1", "scaled nodes", "ok", base)

	first := consolidateWindow(t, store, base, base.Add(24*time.Hour))
	assert.Equal(t, 1, first.UnitsCreated)

	second := consolidateWindow(t, store, base, base.Add(24*time.Hour))
	assert.Equal(t, 0, second.UnitsCreated)
	assert.Equal(t, 0, second.UnitsUpdated)
}

func TestApplyGroups_NewContentBumpsVersionAndReflags(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	appendEntry(t, store, "infrastructure", "task-1", "scaled nodes", "ok", day1)
	consolidateWindow(t, store, day1, day2)

	units, err := store.ListFlagged(ctx, "infrastructure")
	require.NoError(t, err)
	require.Len(t, units, 1)

	// Approve, then consolidate a later window with materially new content.
	require.NoError(t, store.Decide(ctx, units[0].ID, model.DecisionApproved, day2))

	appendEntry(t, store, "infrastructure", "task-1", "rolled back the scale-up", "ok", day2.Add(time.Hour))
	summary := consolidateWindow(t, store, day2, day2.Add(24*time.Hour))
	assert.Equal(t, 0, summary.UnitsCreated)
	assert.Equal(t, 1, summary.UnitsUpdated)

	updated, err := store.GetUnit(ctx, units[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.True(t, updated.Flagged, "the approval covered the old content only")
	assert.Contains(t, updated.Content, "scaled nodes")
	assert.Contains(t, updated.Content, "rolled back the scale-up")
	assert.NotEqual(t, units[0].Fingerprint, updated.Fingerprint)
}

func TestDecide_Approve(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	appendEntry(t, store, "security", "task-2", "patched cve", "ok", base)
	consolidateWindow(t, store, base, base.Add(24*time.Hour))

	units, err := store.ListFlagged(ctx, "")
	require.NoError(t, err)
	require.Len(t, units, 1)

	require.NoError(t, store.Decide(ctx, units[0].ID, model.DecisionApproved, base.Add(25*time.Hour)))

	flagged, err := store.ListFlagged(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, flagged)

	unit, err := store.GetUnit(ctx, units[0].ID)
	require.NoError(t, err)
	assert.False(t, unit.Flagged)
	assert.False(t, unit.Archived)

	decisions, err := store.ListDecisions(ctx, units[0].ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, model.DecisionApproved, decisions[0].Decision)
}

func TestDecide_SecondDecisionConflicts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	appendEntry(t, store, "security", "task-2", "patched cve", "ok", base)
	consolidateWindow(t, store, base, base.Add(24*time.Hour))
	units, err := store.ListFlagged(ctx, "")
	require.NoError(t, err)
	require.Len(t, units, 1)

	require.NoError(t, store.Decide(ctx, units[0].ID, model.DecisionApproved, base))

	err = store.Decide(ctx, units[0].ID, model.DecisionRejected, base)
	assert.True(t, model.IsConflict(err), "expected ConflictError, got %v", err)
}

func TestDecide_ConcurrentExactlyOneWins(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	appendEntry(t, store, "security", "task-2", "patched cve", "ok", base)
	consolidateWindow(t, store, base, base.Add(24*time.Hour))
	units, err := store.ListFlagged(ctx, "")
	require.NoError(t, err)
	require.Len(t, units, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, decision := range []model.Decision{model.DecisionApproved, model.DecisionRejected} {
		wg.Add(1)
		go func(i int, d model.Decision) {
			defer wg.Done()
			errs[i] = store.Decide(ctx, units[0].ID, d, base)
		}(i, decision)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			require.True(t, model.IsConflict(err), "unexpected error: %v", err)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one decision must lose")
}

func TestDecide_UnknownUnit(t *testing.T) {
	store := openStore(t)
	err := store.Decide(context.Background(), "no-such-unit", model.DecisionApproved, time.Now())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDecide_InvalidDecision(t *testing.T) {
	store := openStore(t)
	err := store.Decide(context.Background(), "any", model.Decision("maybe"), time.Now())
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRejectedUnit_NotRecreatedFromSameEvidence(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	appendEntry(t, store, "ml", "task-3", "retrained model", "ok", base)
	consolidateWindow(t, store, base, base.Add(24*time.Hour))
	units, err := store.ListFlagged(ctx, "")
	require.NoError(t, err)
	require.Len(t, units, 1)

	require.NoError(t, store.Decide(ctx, units[0].ID, model.DecisionRejected, base))

	// Same evidence in a later window: the archived fingerprint blocks
	// recreation.
	appendEntry(t, store, "ml", "task-3", "retrained model", "ok", base.Add(25*time.Hour))
	summary := consolidateWindow(t, store, base.Add(24*time.Hour), base.Add(48*time.Hour))
	assert.Equal(t, 0, summary.UnitsCreated)
	assert.Equal(t, 0, summary.UnitsUpdated)

	// Different content is a fresh unit, not a resurrection.
	appendEntry(t, store, "ml", "task-3", "switched to a new architecture", "ok", base.Add(49*time.Hour))
	summary = consolidateWindow(t, store, base.Add(48*time.Hour), base.Add(72*time.Hour))
	assert.Equal(t, 1, summary.UnitsCreated)

	flagged, err := store.ListFlagged(ctx, "ml")
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, 1, flagged[0].Version)
	assert.NotEqual(t, units[0].ID, flagged[0].ID)
}

func TestRunLedger_Cutoff(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.LastSuccessfulCutoff(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)

	since := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	id, err := store.BeginRun(ctx, since, until, until)
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, id, model.RunStatusSucceeded, model.Summary{}, until))

	cutoff, err := store.LastSuccessfulCutoff(ctx)
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(until))

	// Failed runs never advance the cutoff.
	id2, err := store.BeginRun(ctx, until, until.Add(24*time.Hour), until.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, id2, model.RunStatusFailed, model.Summary{}, until.Add(24*time.Hour)))

	cutoff, err = store.LastSuccessfulCutoff(ctx)
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(until))
}

func TestDigest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	appendEntry(t, store, "infrastructure", "task-1", "scaled nodes", "ok", day.Add(2*time.Hour))
	appendEntry(t, store, "security", "task-2", "patched cve", "ok", day.Add(3*time.Hour))
	consolidateWindow(t, store, day, day.Add(24*time.Hour))

	digest, err := store.Digest(ctx, day.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30", digest.Date)
	assert.Equal(t, 2, digest.DomainsTouched)
	assert.Equal(t, 0, digest.UnitsCreated, "units carry the window's until cutoff")
	assert.Equal(t, 2, digest.UnitsFlaggedPending)

	nextDay, err := store.Digest(ctx, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, nextDay.UnitsCreated)
	assert.Equal(t, 0, nextDay.DomainsTouched)
}
