package store

import (
	"context"
	"database/sql"
	"time"

	"launchdock/internal/domain"
)

// AddQueueItem persists a new pending queue row and returns its id.
func (s *Store) AddQueueItem(ctx context.Context, message, agentName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO ai_queue (status, message, created_at, agent_name) VALUES (?, ?, ?, ?)",
		string(domain.StatusPending), message, time.Now().Unix(), agentName,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkProcessing transitions a pending row to processing and records the
// start time for the reconciliation sweep.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ai_queue SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		string(domain.StatusProcessing), time.Now().Unix(), id, string(domain.StatusPending),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.MarkProcessing", domain.ErrItemNotFound, "no pending row")
	}
	return nil
}

// MarkTerminal writes the item's single terminal status. A row that already
// reached a terminal state is never updated again.
func (s *Store) MarkTerminal(ctx context.Context, id int64, status domain.QueueStatus, response string) error {
	if !status.Terminal() {
		return domain.NewDomainError("store.MarkTerminal", domain.ErrInvalidInput, string(status))
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE ai_queue SET status = ?, response = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)",
		string(status), response, time.Now().Unix(), id,
		string(domain.StatusPending), string(domain.StatusProcessing),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.MarkTerminal", domain.ErrItemNotFound, "no live row")
	}
	return nil
}

// ExpireProcessing fails every processing row that started before the cutoff
// and returns the affected ids.
func (s *Store) ExpireProcessing(ctx context.Context, cutoff time.Time, reason string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM ai_queue WHERE status = ? AND started_at IS NOT NULL AND started_at < ?",
		string(domain.StatusProcessing), cutoff.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := s.MarkTerminal(ctx, id, domain.StatusFailed, reason); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// GetQueueItem loads a single queue row.
func (s *Store) GetQueueItem(ctx context.Context, id int64) (*domain.QueueItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, message, response, created_at, started_at, completed_at, agent_name
		FROM ai_queue WHERE id = ?`, id)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewDomainError("store.GetQueueItem", domain.ErrItemNotFound, "")
	}
	return item, err
}

// QueueItems lists the most recent queue rows, newest first.
func (s *Store) QueueItems(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, message, response, created_at, started_at, completed_at, agent_name
		FROM ai_queue ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountQueueItems returns the total number of queue rows.
func (s *Store) CountQueueItems(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ai_queue").Scan(&n)
	return n, err
}

// ClearFinished deletes completed and failed rows, returning the count.
func (s *Store) ClearFinished(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM ai_queue WHERE status IN (?, ?)",
		string(domain.StatusCompleted), string(domain.StatusFailed),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row scanner) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var status string
	var response, agentName sql.NullString
	var createdAt int64
	var startedAt, completedAt sql.NullInt64
	if err := row.Scan(&item.ID, &status, &item.Message, &response,
		&createdAt, &startedAt, &completedAt, &agentName); err != nil {
		return nil, err
	}
	item.Status = domain.QueueStatus(status)
	item.Response = response.String
	item.AgentName = agentName.String
	item.CreatedAt = time.Unix(createdAt, 0)
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		item.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		item.CompletedAt = &t
	}
	return &item, nil
}
