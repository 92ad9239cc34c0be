package knowledge

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinkerloft/triage/internal/model"
)

// AppendEntry records one completed action. The activity log is
// append-only: entries are never mutated or deleted afterwards, so
// concurrent writers need no coordination beyond SQLite's own locking.
func (s *Store) AppendEntry(ctx context.Context, entry model.ActivityLogEntry) (model.ActivityLogEntry, error) {
	if strings.TrimSpace(entry.DomainID) == "" {
		return model.ActivityLogEntry{}, &model.ValidationError{Field: "domain_id", Reason: "is required"}
	}
	if strings.TrimSpace(entry.TaskID) == "" {
		return model.ActivityLogEntry{}, &model.ValidationError{Field: "task_id", Reason: "is required"}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, domain_id, task_id, action_text, result_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DomainID, entry.TaskID, entry.ActionText, entry.ResultText, toMillis(entry.CreatedAt))
	if err != nil {
		return model.ActivityLogEntry{}, storeErr("append entry", err)
	}
	return entry, nil
}

// SelectEntries returns activity entries with created_at in the half-open
// window [since, until). Back-to-back windows sharing a cutoff therefore
// never select the same entry twice and never skip one.
func (s *Store) SelectEntries(ctx context.Context, since, until time.Time) ([]model.ActivityLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain_id, task_id, action_text, result_text, created_at
		 FROM activity_log
		 WHERE created_at >= ? AND created_at < ?
		 ORDER BY created_at, id`,
		toMillis(since), toMillis(until))
	if err != nil {
		return nil, storeErr("select entries", err)
	}
	defer rows.Close()

	var entries []model.ActivityLogEntry
	for rows.Next() {
		var e model.ActivityLogEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.DomainID, &e.TaskID, &e.ActionText, &e.ResultText, &createdAt); err != nil {
			return nil, storeErr("scan entry", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("select entries", err)
	}
	return entries, nil
}

// SeedDomains inserts registry domains that are not present yet. Existing
// rows are left untouched: the registry is seeded once and then static.
func (s *Store) SeedDomains(ctx context.Context, domains []model.KnowledgeDomain) error {
	for _, d := range domains {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO knowledge_domains (id, name, description) VALUES (?, ?, ?)`,
			d.ID, d.Name, d.Description)
		if err != nil {
			return storeErr("seed domains", err)
		}
	}
	return nil
}

// ListDomains returns the registered domains in id order.
func (s *Store) ListDomains(ctx context.Context) ([]model.KnowledgeDomain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description FROM knowledge_domains ORDER BY id`)
	if err != nil {
		return nil, storeErr("list domains", err)
	}
	defer rows.Close()

	var domains []model.KnowledgeDomain
	for rows.Next() {
		var d model.KnowledgeDomain
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return nil, storeErr("scan domain", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list domains", err)
	}
	return domains, nil
}
