// Package redis implements the task queue on Redis Streams.
// Consumer groups track deliveries, and pending entries older than the
// visibility timeout are claimed back so abandoned tasks redeliver.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

const (
	taskStream = "ragna:ingest"
	taskGroup  = "ragna:workers"

	consumerPrefix = "worker-"

	// DefaultVisibilityTimeout is how long a delivery stays invisible
	// before other consumers may claim it.
	DefaultVisibilityTimeout = 5 * time.Minute

	bodyField = "body"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using Redis Streams.
type Queue struct {
	client            *redis.Client
	consumerName      string
	visibilityTimeout time.Duration
}

// NewQueue creates a Redis-backed task queue. The consumerName should
// be unique per worker instance (e.g. hostname + PID); an empty name
// gets a generated one.
func NewQueue(client *redis.Client, consumerName string, visibilityTimeout time.Duration) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = DefaultVisibilityTimeout
	}
	return &Queue{
		client:            client,
		consumerName:      consumerName,
		visibilityTimeout: visibilityTimeout,
	}, nil
}

// EnsureQueue creates the stream and consumer group if missing.
func (q *Queue) EnsureQueue(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Enqueue appends a task to the stream.
func (q *Queue) Enqueue(ctx context.Context, task domain.IngestionTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]interface{}{bodyField: string(body)},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Receive returns up to max deliveries. Expired deliveries from other
// consumers are claimed first; if none exist it blocks up to wait for
// new entries. The receipt handle is the stream message ID.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]driven.Delivery, error) {
	if max <= 0 {
		max = 1
	}

	deliveries, err := q.claimExpired(ctx, max)
	if err != nil {
		return nil, err
	}
	if len(deliveries) > 0 {
		return deliveries, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    int64(max),
		Block:    wait,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // no tasks available
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			delivery, ok := q.decode(ctx, msg)
			if !ok {
				continue
			}
			delivery.Attempt = 1
			deliveries = append(deliveries, delivery)
		}
	}
	return deliveries, nil
}

// Ack removes the delivered entry from the stream permanently.
func (q *Queue) Ack(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return domain.ErrInvalidInput
	}

	pipe := q.client.Pipeline()
	pipe.XAck(ctx, taskStream, taskGroup, receiptHandle)
	pipe.XDel(ctx, taskStream, receiptHandle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Stats reports pending stream length and unacked deliveries.
func (q *Queue) Stats(ctx context.Context) (driven.QueueStats, error) {
	var stats driven.QueueStats

	length, err := q.client.XLen(ctx, taskStream).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return stats, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	groups, err := q.client.XInfoGroups(ctx, taskStream).Result()
	if err == nil {
		for _, group := range groups {
			if group.Name == taskGroup {
				stats.InFlight = group.Pending
				break
			}
		}
	}

	// Unacked entries stay in the stream, so subtract them from the
	// raw length to get the deliverable count.
	stats.Pending = length - stats.InFlight
	if stats.Pending < 0 {
		stats.Pending = 0
	}
	return stats, nil
}

// Health checks connectivity to Redis.
func (q *Queue) Health(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// claimExpired takes over deliveries another consumer left unacked past
// the visibility timeout.
func (q *Queue) claimExpired(ctx context.Context, max int) ([]driven.Delivery, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: taskStream,
		Group:  taskGroup,
		Start:  "-",
		End:    "+",
		Count:  int64(max),
		Idle:   q.visibilityTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || isStreamMissingError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	var deliveries []driven.Delivery
	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   taskStream,
			Group:    taskGroup,
			Consumer: q.consumerName,
			MinIdle:  q.visibilityTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		delivery, ok := q.decode(ctx, claimed[0])
		if !ok {
			continue
		}
		delivery.Attempt = int(p.RetryCount) + 1
		deliveries = append(deliveries, delivery)
		if len(deliveries) >= max {
			break
		}
	}
	return deliveries, nil
}

// decode unmarshals a stream entry. Poison entries are acked and
// dropped so they cannot wedge the queue.
func (q *Queue) decode(ctx context.Context, msg redis.XMessage) (driven.Delivery, bool) {
	body, ok := msg.Values[bodyField].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return driven.Delivery{}, false
	}

	var task domain.IngestionTask
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		q.drop(ctx, msg.ID)
		return driven.Delivery{}, false
	}

	return driven.Delivery{Task: task, ReceiptHandle: msg.ID}, true
}

func (q *Queue) drop(ctx context.Context, msgID string) {
	q.client.XAck(ctx, taskStream, taskGroup, msgID)
	q.client.XDel(ctx, taskStream, msgID)
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isStreamMissingError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}
