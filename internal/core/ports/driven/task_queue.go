package driven

import (
	"context"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
)

// Delivery is a received task plus the handle needed to acknowledge it.
type Delivery struct {
	Task domain.IngestionTask
	// ReceiptHandle identifies this delivery for Ack. It is only valid
	// until the visibility timeout elapses.
	ReceiptHandle string
	// Attempt counts how many times the task has been delivered.
	Attempt int
}

// QueueStats reports queue depth for monitoring.
type QueueStats struct {
	Pending  int64
	InFlight int64
}

// TaskQueue hands ingestion tasks from the API to workers with
// at-least-once delivery.
type TaskQueue interface {
	// EnsureQueue creates the queue and its consumer group if missing.
	EnsureQueue(ctx context.Context) error

	// Enqueue appends a task to the queue.
	Enqueue(ctx context.Context, task domain.IngestionTask) error

	// Receive returns up to max tasks, waiting up to wait for at least
	// one to arrive. A received task is invisible to other consumers for
	// the visibility timeout; if it is not acked in time it becomes
	// deliverable again.
	Receive(ctx context.Context, max int, wait time.Duration) ([]Delivery, error)

	// Ack removes a delivered task from the queue permanently.
	Ack(ctx context.Context, receiptHandle string) error

	// Stats reports pending and in-flight counts.
	Stats(ctx context.Context) (QueueStats, error)

	// Health verifies the queue is reachable.
	Health(ctx context.Context) error
}
