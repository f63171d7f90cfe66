package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"launchdock/internal/domain"
)

// processingDeadlineReason is the failure text written to queue rows the
// reconciliation sweep expires.
const processingDeadlineReason = "processing deadline exceeded"

// QueueStore is the durable side of the queue manager.
type QueueStore interface {
	AddQueueItem(ctx context.Context, message, agentName string) (int64, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkTerminal(ctx context.Context, id int64, status domain.QueueStatus, response string) error
	ExpireProcessing(ctx context.Context, cutoff time.Time, reason string) ([]int64, error)
}

// QueueManager is the in-process admission controller for agent requests.
// It bounds how many requests may be concurrently processing and persists
// every request's lifecycle. It is an explicitly constructed service held
// by the composition root, never a global.
type QueueManager struct {
	store  QueueStore
	logger *slog.Logger

	mu            sync.Mutex
	cond          *sync.Cond
	maxConcurrent int
	running       int
	inFlight      map[int64]struct{}
	pending       []int64 // FIFO of ids that arrived while at capacity
}

// NewQueueManager creates a queue manager with the given admission cap.
func NewQueueManager(store QueueStore, maxConcurrent int, logger *slog.Logger) *QueueManager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	m := &QueueManager{
		store:         store,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		inFlight:      make(map[int64]struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// SetMaxConcurrent updates the admission cap. In-flight work is never
// paused or cancelled; raising the cap wakes blocked waiters.
func (m *QueueManager) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.maxConcurrent = n
	m.mu.Unlock()
	m.cond.Broadcast()
}

// Running returns the number of requests currently processing.
func (m *QueueManager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Enqueue persists a new pending row and returns its id. If capacity is
// exhausted the id is also appended to the in-memory FIFO. The FIFO is
// bookkeeping only; admission happens through Acquire or the polling pair.
func (m *QueueManager) Enqueue(ctx context.Context, message, agentName string) (int64, error) {
	id, err := m.store.AddQueueItem(ctx, message, agentName)
	if err != nil {
		return 0, domain.WrapOp("queue.Enqueue", err)
	}

	m.mu.Lock()
	if m.running >= m.maxConcurrent {
		m.pending = append(m.pending, id)
	}
	m.mu.Unlock()

	m.logger.Debug("request enqueued", "id", id, "agent", agentName)
	return id, nil
}

// Acquire blocks until a processing slot is free, claims it, and marks the
// item processing. Check and increment happen atomically under the lock, so
// the running count never exceeds the cap. Returns early if ctx is done.
func (m *QueueManager) Acquire(ctx context.Context, id int64) error {
	m.mu.Lock()
	for m.running >= m.maxConcurrent {
		if err := ctx.Err(); err != nil {
			m.mu.Unlock()
			return err
		}
		m.waitLocked(ctx)
	}
	m.running++
	m.inFlight[id] = struct{}{}
	m.mu.Unlock()

	if err := m.store.MarkProcessing(ctx, id); err != nil {
		m.dropInFlight(id)
		return domain.WrapOp("queue.Acquire", err)
	}
	return nil
}

// waitLocked waits on the condition variable while also waking up when ctx
// is cancelled. Caller must hold m.mu.
func (m *QueueManager) waitLocked(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			m.cond.Broadcast()
		case <-done:
		}
	}()
	m.cond.Wait()
	close(done)
}

// CanProcess reports whether a slot is currently free. Pure read: two
// callers can both observe true and both proceed. Kept for the polling
// admission mode.
func (m *QueueManager) CanProcess() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running < m.maxConcurrent
}

// StartProcessing claims a slot without checking the cap; callers gate it
// on CanProcess by convention. Kept for the polling admission mode.
func (m *QueueManager) StartProcessing(ctx context.Context, id int64) error {
	if err := m.store.MarkProcessing(ctx, id); err != nil {
		return domain.WrapOp("queue.StartProcessing", err)
	}
	m.mu.Lock()
	m.running++
	m.inFlight[id] = struct{}{}
	m.mu.Unlock()
	return nil
}

// Complete writes the item's terminal completed status and frees its slot.
func (m *QueueManager) Complete(ctx context.Context, id int64, response string) error {
	return m.finish(ctx, id, domain.StatusCompleted, response)
}

// Fail writes the item's terminal failed status and frees its slot.
func (m *QueueManager) Fail(ctx context.Context, id int64, errText string) error {
	return m.finish(ctx, id, domain.StatusFailed, errText)
}

func (m *QueueManager) finish(ctx context.Context, id int64, status domain.QueueStatus, response string) error {
	err := m.store.MarkTerminal(ctx, id, status, response)
	if err != nil && errors.Is(err, domain.ErrItemNotFound) {
		// The reconciliation sweep already expired this item and freed
		// its slot.
		m.logger.Warn("queue item already terminal", "id", id, "status", status)
		m.dropInFlight(id)
		return nil
	}
	if err != nil {
		return domain.WrapOp("queue.finish", err)
	}

	m.release(id)
	return nil
}

// release frees the slot held by id and pops the FIFO head.
func (m *QueueManager) release(id int64) {
	m.mu.Lock()
	if _, ok := m.inFlight[id]; ok {
		delete(m.inFlight, id)
		m.running--
	}
	if len(m.pending) > 0 {
		m.pending = m.pending[1:]
	}
	m.mu.Unlock()
	m.cond.Broadcast()
}

// dropInFlight removes the id's slot claim if it still holds one.
func (m *QueueManager) dropInFlight(id int64) {
	m.mu.Lock()
	if _, ok := m.inFlight[id]; ok {
		delete(m.inFlight, id)
		m.running--
	}
	m.mu.Unlock()
	m.cond.Broadcast()
}

// NextPending pops the FIFO head if a slot is free. Retained for parity
// with the bookkeeping API; nothing in the orchestration path consumes it.
func (m *QueueManager) NextPending() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running >= m.maxConcurrent || len(m.pending) == 0 {
		return 0, false
	}
	id := m.pending[0]
	m.pending = m.pending[1:]
	return id, true
}

// Reconcile fails every processing row older than deadline and frees the
// slots of expired items this process still accounts for. This bounds the
// leakage of both queue rows and concurrency slots when a caller dies
// mid-flight.
func (m *QueueManager) Reconcile(ctx context.Context, deadline time.Duration) (int, error) {
	cutoff := time.Now().Add(-deadline)
	ids, err := m.store.ExpireProcessing(ctx, cutoff, processingDeadlineReason)
	if err != nil {
		return 0, domain.WrapOp("queue.Reconcile", err)
	}

	for _, id := range ids {
		m.dropInFlight(id)
	}

	if len(ids) > 0 {
		m.logger.Warn("expired stuck queue items", "count", len(ids), "deadline", deadline)
	}
	return len(ids), nil
}
