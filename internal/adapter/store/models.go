package store

import (
	"context"

	"launchdock/internal/domain"
)

// SaveModels replaces the cached model list with the given set.
func (s *Store) SaveModels(ctx context.Context, models []domain.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ai_models"); err != nil {
		return err
	}
	for _, m := range models {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO ai_models (id, created) VALUES (?, ?)", m.ID, m.Created); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Models returns the cached model list.
func (s *Store) Models(ctx context.Context) ([]domain.Model, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created FROM ai_models ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Model
	for rows.Next() {
		var m domain.Model
		if err := rows.Scan(&m.ID, &m.Created); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
