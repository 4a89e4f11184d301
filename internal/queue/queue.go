package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job is the broker envelope around a queue payload. Attempts counts
// deliveries so exhausted jobs can be dead-lettered.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler processes one job. A returned error requeues the job until its
// attempts are exhausted.
type Handler func(ctx context.Context, job Job) error

// Broker produces and consumes jobs on named queues with at-least-once
// delivery.
type Broker interface {
	Enqueue(ctx context.Context, queue string, payload any) error
	// Dequeue blocks up to timeout for a job, moving the raw entry to the
	// processing list. It returns redis.Nil when no job was available.
	Dequeue(ctx context.Context, queue string, timeout time.Duration) (Job, string, error)
	// Ack removes a raw entry from the processing list.
	Ack(ctx context.Context, queue, raw string) error
	// Retry requeues a failed job, or dead-letters it when its attempts are
	// spent. It reports whether the job was requeued.
	Retry(ctx context.Context, job Job, raw string) (bool, error)
}

// RedisBroker is a Redis list backed Broker. Dequeue moves entries into a
// per-queue processing list so a crashed worker leaves the job recoverable.
type RedisBroker struct {
	client      *redis.Client
	maxAttempts int
}

// NewRedisBroker constructs the broker.
func NewRedisBroker(client *redis.Client, maxAttempts int) *RedisBroker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RedisBroker{client: client, maxAttempts: maxAttempts}
}

func pendingKey(queue string) string    { return "queue:" + queue }
func processingKey(queue string) string { return "queue:" + queue + ":processing" }
func deadKey(queue string) string       { return "queue:" + queue + ":dead" }

// Enqueue wraps the payload in a Job envelope and pushes it.
func (b *RedisBroker) Enqueue(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	job := Job{
		ID:         uuid.NewString(),
		Queue:      queue,
		Payload:    body,
		Attempts:   0,
		EnqueuedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return b.client.LPush(ctx, pendingKey(queue), raw).Err()
}

func (b *RedisBroker) Dequeue(ctx context.Context, queue string, timeout time.Duration) (Job, string, error) {
	raw, err := b.client.BLMove(ctx, pendingKey(queue), processingKey(queue), "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		return Job{}, "", err
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Malformed entries cannot be retried; drop them from processing.
		_ = b.client.LRem(ctx, processingKey(queue), 1, raw).Err()
		return Job{}, "", fmt.Errorf("unmarshal job: %w", err)
	}
	job.Attempts++
	return job, raw, nil
}

func (b *RedisBroker) Ack(ctx context.Context, queue, raw string) error {
	return b.client.LRem(ctx, processingKey(queue), 1, raw).Err()
}

func (b *RedisBroker) Retry(ctx context.Context, job Job, raw string) (bool, error) {
	if err := b.Ack(ctx, job.Queue, raw); err != nil {
		return false, err
	}
	updated, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if job.Attempts >= b.maxAttempts {
		return false, b.client.LPush(ctx, deadKey(job.Queue), updated).Err()
	}
	return true, b.client.LPush(ctx, pendingKey(job.Queue), updated).Err()
}
