// Package worker runs the ingestion poll loop.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// TaskProcessor handles one ingestion task end to end.
type TaskProcessor interface {
	Process(ctx context.Context, task domain.IngestionTask) error
}

// Config tunes the poll loop.
type Config struct {
	// Concurrency is the number of polling goroutines.
	Concurrency int
	// ReceiveWait is how long a single Receive blocks for new tasks.
	ReceiveWait time.Duration
	// BatchSize is the maximum tasks fetched per Receive.
	BatchSize int
}

// DefaultConfig matches the single-threaded deployment.
func DefaultConfig() Config {
	return Config{
		Concurrency: 1,
		ReceiveWait: 5 * time.Second,
		BatchSize:   1,
	}
}

// Worker polls the task queue and processes ingestion tasks. Tasks are
// acked only after successful processing; failures are left to
// redeliver when the visibility timeout expires.
type Worker struct {
	queue     driven.TaskQueue
	processor TaskProcessor
	cfg       Config
	logger    *slog.Logger

	wg sync.WaitGroup
}

// New creates a worker. Zero config values fall back to defaults.
func New(queue driven.TaskQueue, processor TaskProcessor, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.ReceiveWait <= 0 {
		cfg.ReceiveWait = def.ReceiveWait
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Worker{
		queue:     queue,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the polling goroutines. It returns immediately; call
// Wait after cancelling the context to drain in-progress tasks.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting workers", "concurrency", w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.poll(ctx, w.logger.With("worker_id", id))
		}(i)
	}
}

// Wait blocks until every polling goroutine has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Run is Start plus Wait, returning when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.Start(ctx)
	w.Wait()
}

func (w *Worker) poll(ctx context.Context, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			logger.Info("worker stopping")
			return
		}

		deliveries, err := w.queue.Receive(ctx, w.cfg.BatchSize, w.cfg.ReceiveWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("worker stopping")
				return
			}
			logger.Error("receive failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, delivery := range deliveries {
			w.handle(ctx, logger, delivery)
		}
	}
}

func (w *Worker) handle(ctx context.Context, logger *slog.Logger, delivery driven.Delivery) {
	logger = logger.With(
		"task_id", delivery.Task.ID,
		"filename", delivery.Task.Filename,
		"attempt", delivery.Attempt)

	start := time.Now()
	if err := w.processor.Process(ctx, delivery.Task); err != nil {
		// Left unacked on purpose, the queue redelivers it after the
		// visibility timeout.
		logger.Error("task failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}

	if err := w.queue.Ack(ctx, delivery.ReceiptHandle); err != nil {
		logger.Error("ack failed", "error", err)
		return
	}
	logger.Info("task completed", "duration_ms", time.Since(start).Milliseconds())
}
