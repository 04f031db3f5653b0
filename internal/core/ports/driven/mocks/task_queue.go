package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Ensure TaskQueue implements the interface.
var _ driven.TaskQueue = (*TaskQueue)(nil)

// TaskQueue is an in-memory task queue for tests. Received tasks move
// to an in-flight set and return to pending when Requeue is called,
// standing in for visibility timeout expiry.
type TaskQueue struct {
	mu       sync.Mutex
	pending  []domain.IngestionTask
	inFlight map[string]domain.IngestionTask
	attempts map[string]int
	seq      int

	// FailEnqueue makes Enqueue return ErrQueueUnavailable.
	FailEnqueue bool
}

// NewTaskQueue creates an empty mock queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		inFlight: make(map[string]domain.IngestionTask),
		attempts: make(map[string]int),
	}
}

func (q *TaskQueue) EnsureQueue(_ context.Context) error { return nil }

func (q *TaskQueue) Enqueue(_ context.Context, task domain.IngestionTask) error {
	if q.FailEnqueue {
		return domain.ErrQueueUnavailable
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, task)
	return nil
}

func (q *TaskQueue) Receive(_ context.Context, max int, _ time.Duration) ([]driven.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []driven.Delivery
	for len(q.pending) > 0 && len(out) < max {
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.seq++
		handle := fmt.Sprintf("receipt-%d", q.seq)
		q.inFlight[handle] = task
		q.attempts[task.ID]++
		out = append(out, driven.Delivery{
			Task:          task,
			ReceiptHandle: handle,
			Attempt:       q.attempts[task.ID],
		})
	}
	return out, nil
}

func (q *TaskQueue) Ack(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[receiptHandle]; !ok {
		return domain.ErrNotFound
	}
	delete(q.inFlight, receiptHandle)
	return nil
}

func (q *TaskQueue) Stats(_ context.Context) (driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return driven.QueueStats{
		Pending:  int64(len(q.pending)),
		InFlight: int64(len(q.inFlight)),
	}, nil
}

func (q *TaskQueue) Health(_ context.Context) error { return nil }

// Requeue moves an in-flight delivery back to pending, simulating an
// expired visibility timeout.
func (q *TaskQueue) Requeue(receiptHandle string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.inFlight[receiptHandle]
	if !ok {
		return false
	}
	delete(q.inFlight, receiptHandle)
	q.pending = append(q.pending, task)
	return true
}

// PendingCount returns the number of deliverable tasks.
func (q *TaskQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// InFlightCount returns the number of unacked deliveries.
func (q *TaskQueue) InFlightCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// Reset clears all queue state.
func (q *TaskQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.inFlight = make(map[string]domain.IngestionTask)
	q.attempts = make(map[string]int)
}
