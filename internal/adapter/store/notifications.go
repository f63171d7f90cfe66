package store

import (
	"context"
	"time"

	"launchdock/internal/domain"
)

// CreateNotification persists a notification record and returns its id.
func (s *Store) CreateNotification(ctx context.Context, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (text, created_at) VALUES (?, ?)",
		text, time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Notifications lists notifications, newest first. Dismissed ones are
// excluded unless includeDismissed is set.
func (s *Store) Notifications(ctx context.Context, includeDismissed bool) ([]domain.Notification, error) {
	query := "SELECT id, text, created_at, dismissed FROM notifications"
	if !includeDismissed {
		query += " WHERE dismissed = 0"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var createdAt int64
		var dismissed int
		if err := rows.Scan(&n.ID, &n.Text, &createdAt, &dismissed); err != nil {
			return nil, err
		}
		n.CreatedAt = time.Unix(createdAt, 0)
		n.Dismissed = dismissed != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

// DismissNotification marks one notification as dismissed.
func (s *Store) DismissNotification(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET dismissed = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.DismissNotification", domain.ErrItemNotFound, "")
	}
	return nil
}

// DismissAllNotifications marks every notification as dismissed.
func (s *Store) DismissAllNotifications(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET dismissed = 1 WHERE dismissed = 0")
	return err
}
