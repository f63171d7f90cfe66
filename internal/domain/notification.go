package domain

import "time"

// Notification is a persisted message for the user, produced by the
// send_notification tool.
type Notification struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Dismissed bool      `json:"dismissed"`
}
