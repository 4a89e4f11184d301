package service

import "context"

// Named job queues consumed by the background workers.
const (
	QueueClassification  = "classification"
	QueuePriorityScoring = "priority-scoring"
	QueueRouting         = "routing"
)

// ClassifyJob asks the classifier to produce insights for a query.
type ClassifyJob struct {
	QueryID string `json:"queryId"`
	Message string `json:"message"`
}

// ScoreJob is the legacy simplified priority path. Routing supersedes it but
// both run for every created query.
type ScoreJob struct {
	QueryID string `json:"queryId"`
	Message string `json:"message"`
}

// RouteJob triggers a full triage pass.
type RouteJob struct {
	QueryID string `json:"queryId"`
}

// JobEnqueuer hands jobs to the broker. Delivery is at-least-once; handlers
// must tolerate redelivery.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, queue string, payload any) error
}
