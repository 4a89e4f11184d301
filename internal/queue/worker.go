package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/observability"
)

const dequeueTimeout = 2 * time.Second

// Worker runs a pool of goroutines per registered queue, dispatching jobs
// to their handlers until the context is cancelled.
type Worker struct {
	broker      Broker
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int

	handlers map[string]Handler
	wg       sync.WaitGroup
}

// NewWorker constructs a worker pool. Concurrency is per queue.
func NewWorker(broker Broker, concurrency int, logger *zap.Logger, metrics *observability.Metrics) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		broker:      broker,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
		handlers:    make(map[string]Handler),
	}
}

// Handle registers the handler for a queue. Must be called before Start.
func (w *Worker) Handle(queue string, handler Handler) {
	w.handlers[queue] = handler
}

// Start launches the consumer goroutines. It returns immediately; cancel the
// context to stop and call Wait to drain.
func (w *Worker) Start(ctx context.Context) {
	for queue, handler := range w.handlers {
		for i := 0; i < w.concurrency; i++ {
			w.wg.Add(1)
			go w.consume(ctx, queue, handler)
		}
	}
	w.logger.Info("queue workers started",
		zap.Int("queues", len(w.handlers)),
		zap.Int("concurrency", w.concurrency))
}

// Wait blocks until all consumer goroutines have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, queue string, handler Handler) {
	defer w.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, raw, err := w.broker.Dequeue(ctx, queue, dequeueTimeout)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error("dequeue failed", zap.String("queue", queue), zap.Error(err))
			continue
		}
		w.process(ctx, queue, handler, job, raw)
	}
}

func (w *Worker) process(ctx context.Context, queue string, handler Handler, job Job, raw string) {
	if err := handler(ctx, job); err != nil {
		requeued, retryErr := w.broker.Retry(ctx, job, raw)
		if retryErr != nil {
			w.logger.Error("job retry failed",
				zap.String("queue", queue), zap.String("jobId", job.ID), zap.Error(retryErr))
			return
		}
		outcome := "dead"
		if requeued {
			outcome = "retry"
		}
		w.metrics.RecordJob(queue, outcome)
		w.logger.Warn("job failed",
			zap.String("queue", queue),
			zap.String("jobId", job.ID),
			zap.Int("attempts", job.Attempts),
			zap.Bool("requeued", requeued),
			zap.Error(err))
		return
	}
	if err := w.broker.Ack(ctx, queue, raw); err != nil {
		w.logger.Error("job ack failed",
			zap.String("queue", queue), zap.String("jobId", job.ID), zap.Error(err))
		return
	}
	w.metrics.RecordJob(queue, "ok")
}
