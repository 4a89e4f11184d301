package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/observability"
)

// fakeBroker records acks and retries for worker dispatch tests.
type fakeBroker struct {
	maxAttempts int
	acked       []string
	requeued    []Job
	dead        []Job
}

func (b *fakeBroker) Enqueue(context.Context, string, any) error { return nil }

func (b *fakeBroker) Dequeue(context.Context, string, time.Duration) (Job, string, error) {
	return Job{}, "", errors.New("not used")
}

func (b *fakeBroker) Ack(_ context.Context, _ string, raw string) error {
	b.acked = append(b.acked, raw)
	return nil
}

func (b *fakeBroker) Retry(_ context.Context, job Job, _ string) (bool, error) {
	if job.Attempts >= b.maxAttempts {
		b.dead = append(b.dead, job)
		return false, nil
	}
	b.requeued = append(b.requeued, job)
	return true, nil
}

func newTestWorker(broker Broker) *Worker {
	return NewWorker(broker, 1, zap.NewNop(), observability.NewMetrics())
}

func TestProcessAcksOnSuccess(t *testing.T) {
	broker := &fakeBroker{maxAttempts: 3}
	worker := newTestWorker(broker)

	worker.process(context.Background(), "routing", func(context.Context, Job) error {
		return nil
	}, Job{ID: "j1", Queue: "routing", Attempts: 1}, "raw-1")

	assert.Equal(t, []string{"raw-1"}, broker.acked)
	assert.Empty(t, broker.requeued)
	assert.Empty(t, broker.dead)
}

func TestProcessRetriesOnFailure(t *testing.T) {
	broker := &fakeBroker{maxAttempts: 3}
	worker := newTestWorker(broker)

	worker.process(context.Background(), "routing", func(context.Context, Job) error {
		return errors.New("boom")
	}, Job{ID: "j1", Queue: "routing", Attempts: 1}, "raw-1")

	require.Len(t, broker.requeued, 1)
	assert.Empty(t, broker.acked)
	assert.Empty(t, broker.dead)
}

func TestProcessDeadLettersExhaustedJobs(t *testing.T) {
	broker := &fakeBroker{maxAttempts: 3}
	worker := newTestWorker(broker)

	worker.process(context.Background(), "routing", func(context.Context, Job) error {
		return errors.New("boom")
	}, Job{ID: "j1", Queue: "routing", Attempts: 3}, "raw-1")

	require.Len(t, broker.dead, 1)
	assert.Empty(t, broker.requeued)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	broker := &blockingBroker{}
	worker := newTestWorker(broker)
	worker.Handle("routing", func(context.Context, Job) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

// blockingBroker simulates an idle queue: every dequeue waits out the
// timeout, then reports no job.
type blockingBroker struct{ fakeBroker }

func (b *blockingBroker) Dequeue(ctx context.Context, _ string, timeout time.Duration) (Job, string, error) {
	select {
	case <-ctx.Done():
		return Job{}, "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return Job{}, "", redis.Nil
	}
}
