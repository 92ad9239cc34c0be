package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tinkerloft/triage/internal/model"
)

// BeginRun records the start of a consolidation run and returns its id.
func (s *Store) BeginRun(ctx context.Context, since, until, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consolidation_runs (id, since, until, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, toMillis(since), toMillis(until), string(model.RunStatusRunning), toMillis(startedAt))
	if err != nil {
		return "", storeErr("begin run", err)
	}
	return id, nil
}

// FinishRun records a run's terminal status and summary.
func (s *Store) FinishRun(ctx context.Context, id string, status model.RunStatus, summary model.Summary, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE consolidation_runs
		 SET status = ?, entries_processed = ?, units_created = ?, units_updated = ?,
		     reinforced_signals = ?, finished_at = ?
		 WHERE id = ?`,
		string(status), summary.EntriesProcessed, summary.UnitsCreated,
		summary.UnitsUpdated, summary.ReinforcedSignals, toMillis(finishedAt), id)
	if err != nil {
		return storeErr("finish run", err)
	}
	return nil
}

// LastSuccessfulCutoff returns the until cutoff of the newest succeeded
// run. It is the default since for the next run, so consecutive runs form
// gap-free half-open windows. model.ErrNotFound means no run succeeded yet.
func (s *Store) LastSuccessfulCutoff(ctx context.Context) (time.Time, error) {
	var until int64
	err := s.db.QueryRowContext(ctx,
		`SELECT until FROM consolidation_runs
		 WHERE status = ? ORDER BY until DESC LIMIT 1`,
		string(model.RunStatusSucceeded)).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, model.ErrNotFound
	}
	if err != nil {
		return time.Time{}, storeErr("last successful run", err)
	}
	return fromMillis(until), nil
}

// Digest summarizes one UTC day for review: how many domains saw
// activity, how many units were created that day, and how many units are
// currently flagged and waiting.
func (s *Store) Digest(ctx context.Context, date time.Time) (model.Digest, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	d := model.Digest{Date: dayStart.Format("2006-01-02")}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT domain_id) FROM activity_log
		 WHERE created_at >= ? AND created_at < ?`,
		toMillis(dayStart), toMillis(dayEnd)).Scan(&d.DomainsTouched)
	if err != nil {
		return model.Digest{}, storeErr("digest domains", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM knowledge_units
		 WHERE created_at >= ? AND created_at < ?`,
		toMillis(dayStart), toMillis(dayEnd)).Scan(&d.UnitsCreated)
	if err != nil {
		return model.Digest{}, storeErr("digest units", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM knowledge_units
		 WHERE flagged = 1 AND archived = 0`).Scan(&d.UnitsFlaggedPending)
	if err != nil {
		return model.Digest{}, storeErr("digest flagged", err)
	}

	return d, nil
}
