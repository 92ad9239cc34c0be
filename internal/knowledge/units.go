package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tinkerloft/triage/internal/consolidate"
	"github.com/tinkerloft/triage/internal/model"
)

const unitColumns = `id, domain_id, task_id, content, version, fingerprint, flagged, archived, created_at, updated_at`

// ApplyGroups commits one consolidation batch atomically. For each group:
//
//   - a unit with the same (domain, task, fingerprint) already exists,
//     archived or not: the evidence is already consolidated, nothing
//     changes (this is what makes re-running a window a no-op);
//   - an active unit exists for the (domain, task) with a different
//     fingerprint: the content is new, so it is appended as a dated
//     update, the version is bumped, and the unit re-enters the flagged
//     state regardless of any earlier approval;
//   - otherwise a new unit is created at version 1, flagged for review.
//
// Any failure rolls the whole batch back; nothing partially commits.
func (s *Store) ApplyGroups(ctx context.Context, groups []consolidate.Group, now time.Time) (model.Summary, error) {
	var summary model.Summary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, storeErr("begin consolidation", err)
	}
	defer tx.Rollback()

	domains := make(map[string]bool)
	for _, g := range groups {
		domains[g.DomainID] = true
		summary.EntriesProcessed += len(g.Entries)

		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM knowledge_units
			 WHERE domain_id = ? AND task_id = ? AND fingerprint = ?`,
			g.DomainID, g.TaskID, g.Fingerprint).Scan(&exists)
		if err != nil {
			return model.Summary{}, storeErr("lookup fingerprint", err)
		}
		if exists > 0 {
			continue
		}

		var current model.KnowledgeUnit
		var createdAt, updatedAt int64
		err = tx.QueryRowContext(ctx,
			`SELECT `+unitColumns+` FROM knowledge_units
			 WHERE domain_id = ? AND task_id = ? AND archived = 0
			 ORDER BY updated_at DESC LIMIT 1`,
			g.DomainID, g.TaskID).Scan(
			&current.ID, &current.DomainID, &current.TaskID, &current.Content,
			&current.Version, &current.Fingerprint, &current.Flagged,
			&current.Archived, &createdAt, &updatedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO knowledge_units (`+unitColumns+`)
				 VALUES (?, ?, ?, ?, 1, ?, 1, 0, ?, ?)`,
				uuid.NewString(), g.DomainID, g.TaskID, g.Content, g.Fingerprint,
				toMillis(now), toMillis(now))
			if err != nil {
				return model.Summary{}, storeErr("create unit", err)
			}
			summary.UnitsCreated++
		case err != nil:
			return model.Summary{}, storeErr("lookup unit", err)
		default:
			content := consolidate.AppendUpdate(current.Content, g.Content, now)
			_, err = tx.ExecContext(ctx,
				`UPDATE knowledge_units
				 SET content = ?, version = version + 1, fingerprint = ?, flagged = 1, updated_at = ?
				 WHERE id = ?`,
				content, g.Fingerprint, toMillis(now), current.ID)
			if err != nil {
				return model.Summary{}, storeErr("update unit", err)
			}
			summary.UnitsUpdated++
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Summary{}, storeErr("commit consolidation", err)
	}

	for d := range domains {
		summary.DomainsTouched = append(summary.DomainsTouched, d)
	}
	sort.Strings(summary.DomainsTouched)
	summary.ReinforcedSignals = consolidate.CountReinforced(groups)
	return summary, nil
}

// ListFlagged returns units awaiting review, newest first. Archived units
// never appear. domainID narrows the listing when non-empty.
func (s *Store) ListFlagged(ctx context.Context, domainID string) ([]model.KnowledgeUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM knowledge_units
		 WHERE flagged = 1 AND archived = 0`
	args := []any{}
	if domainID != "" {
		query += ` AND domain_id = ?`
		args = append(args, domainID)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list flagged", err)
	}
	defer rows.Close()

	var units []model.KnowledgeUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list flagged", err)
	}
	return units, nil
}

// GetUnit returns one unit by id, or model.ErrNotFound.
func (s *Store) GetUnit(ctx context.Context, id string) (model.KnowledgeUnit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM knowledge_units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.KnowledgeUnit{}, model.ErrNotFound
	}
	return u, err
}

// Decide applies a reviewer's verdict to a flagged unit. The flag
// transition is a compare-and-set: it only succeeds while the unit is
// still flagged, so of two concurrent decisions exactly one wins and the
// other gets a ConflictError. Rejected units are archived, not deleted,
// which keeps their fingerprint in place so consolidation cannot recreate
// them from the same evidence.
func (s *Store) Decide(ctx context.Context, unitID string, decision model.Decision, now time.Time) error {
	if !decision.Valid() {
		return &model.ValidationError{Field: "decision", Reason: "must be approved or rejected"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin decide", err)
	}
	defer tx.Rollback()

	archived := 0
	if decision == model.DecisionRejected {
		archived = 1
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE knowledge_units SET flagged = 0, archived = ?, updated_at = ?
		 WHERE id = ? AND flagged = 1 AND archived = 0`,
		archived, toMillis(now), unitID)
	if err != nil {
		return storeErr("decide unit", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("decide unit", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM knowledge_units WHERE id = ?`, unitID).Scan(&exists); err != nil {
			return storeErr("decide unit", err)
		}
		if exists == 0 {
			return model.ErrNotFound
		}
		return &model.ConflictError{UnitID: unitID}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO approval_decisions (unit_id, decision, decided_at) VALUES (?, ?, ?)`,
		unitID, string(decision), toMillis(now))
	if err != nil {
		return storeErr("record decision", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit decide", err)
	}
	return nil
}

// ListDecisions returns the decision history for a unit, oldest first.
func (s *Store) ListDecisions(ctx context.Context, unitID string) ([]model.ApprovalDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit_id, decision, decided_at FROM approval_decisions
		 WHERE unit_id = ? ORDER BY decided_at`, unitID)
	if err != nil {
		return nil, storeErr("list decisions", err)
	}
	defer rows.Close()

	var decisions []model.ApprovalDecision
	for rows.Next() {
		var d model.ApprovalDecision
		var decidedAt int64
		if err := rows.Scan(&d.UnitID, &d.Decision, &decidedAt); err != nil {
			return nil, storeErr("scan decision", err)
		}
		d.DecidedAt = fromMillis(decidedAt)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list decisions", err)
	}
	return decisions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (model.KnowledgeUnit, error) {
	var u model.KnowledgeUnit
	var createdAt, updatedAt int64
	err := row.Scan(&u.ID, &u.DomainID, &u.TaskID, &u.Content, &u.Version,
		&u.Fingerprint, &u.Flagged, &u.Archived, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.KnowledgeUnit{}, err
		}
		return model.KnowledgeUnit{}, storeErr("scan unit", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}
