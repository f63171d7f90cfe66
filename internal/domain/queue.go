package domain

import "time"

// QueueStatus is the lifecycle state of a queue item.
type QueueStatus string

const (
	StatusPending    QueueStatus = "pending"
	StatusProcessing QueueStatus = "processing"
	StatusCompleted  QueueStatus = "completed"
	StatusFailed     QueueStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s QueueStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QueueItem is the persisted record of one agent invocation's lifecycle.
// An item transitions pending -> processing -> completed|failed exactly once
// and is never revisited after reaching a terminal state.
type QueueItem struct {
	ID          int64       `json:"id"`
	Status      QueueStatus `json:"status"`
	Message     string      `json:"message"` // serialized conversation snapshot at enqueue time
	Response    string      `json:"response,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	AgentName   string      `json:"agent_name,omitempty"`
}
