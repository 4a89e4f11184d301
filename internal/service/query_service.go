package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// QueryService handles the thin CRUD surface over queries and fans out the
// background jobs on creation.
type QueryService struct {
	queries    repository.QueryRepository
	activities repository.ActivityRepository
	workflow   *StatusWorkflow
	enqueuer   JobEnqueuer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	QueryRepo    repository.QueryRepository
	ActivityRepo repository.ActivityRepository
	Workflow     *StatusWorkflow
	Enqueuer     JobEnqueuer
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// QueryCreateInput describes the query creation payload.
type QueryCreateInput struct {
	Channel       domain.QueryChannel
	Subject       string
	Message       string
	CustomerName  string
	CustomerEmail string
	Tags          []domain.Tag
}

// NewQueryService constructs the service.
func NewQueryService(deps QueryDependencies) *QueryService {
	return &QueryService{
		queries:    deps.QueryRepo,
		activities: deps.ActivityRepo,
		workflow:   deps.Workflow,
		enqueuer:   deps.Enqueuer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// List returns all queries, newest first.
func (s *QueryService) List(ctx context.Context) ([]domain.Query, error) {
	queries, err := s.queries.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return queries, nil
}

// Get fetches one query by id.
func (s *QueryService) Get(ctx context.Context, id string) (*domain.Query, error) {
	query, err := s.queries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("query", map[string]any{"query_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return query, nil
}

// Create persists a new query with medium/new defaults, logs the created
// activity, and enqueues the classify, score, and route jobs.
func (s *QueryService) Create(ctx context.Context, input QueryCreateInput) (*domain.Query, error) {
	query := &domain.Query{
		Channel:       input.Channel,
		Subject:       strings.TrimSpace(input.Subject),
		Message:       strings.TrimSpace(input.Message),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		Tags:          input.Tags,
		Priority:      domain.PriorityMedium,
		Status:        domain.QueryStatusNew,
	}

	if err := s.queries.Create(ctx, query); err != nil {
		return nil, apperrors.MapError(err)
	}

	if _, err := s.activities.Log(ctx, query.ID, domain.ActivityCreated, map[string]any{
		"channel":  query.Channel,
		"priority": query.Priority,
		"status":   query.Status,
	}, nil); err != nil {
		s.logger.Warn("failed to log created activity", zap.String("query_id", query.ID), zap.Error(err))
	}

	s.enqueueJobs(ctx, query)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventQueryCreated,
		QueryID: query.ID,
		Payload: events.QueryCreatedPayload{
			Channel:  query.Channel,
			Priority: query.Priority,
			Status:   query.Status,
			Subject:  query.Subject,
		},
	})
	return query, nil
}

// UpdateStatus applies an operator-driven status change, enforcing the
// workflow transition table.
func (s *QueryService) UpdateStatus(ctx context.Context, id string, status domain.QueryStatus, actorID *string, reason string) (*domain.Query, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.workflow.CanTransition(current.Status, status) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": current.Status,
			"to":   status,
		})
	}

	updated, err := s.queries.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.activities.Log(ctx, id, domain.ActivityStatusChanged, map[string]any{
		"from":   current.Status,
		"to":     status,
		"reason": reason,
		"auto":   false,
	}, actorID); err != nil {
		s.logger.Warn("failed to log status activity", zap.String("query_id", id), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventQueryStatusChanged,
		QueryID: id,
		Actor:   events.Actor{UserID: actorID},
		Payload: events.QueryStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: status,
			Reason:    reason,
		},
	})
	return updated, nil
}

// ListActivities returns the audit trail for a query, oldest first.
func (s *QueryService) ListActivities(ctx context.Context, id string) ([]domain.Activity, error) {
	activities, err := s.activities.ListByQuery(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return activities, nil
}

func (s *QueryService) enqueueJobs(ctx context.Context, query *domain.Query) {
	if s.enqueuer == nil {
		return
	}
	jobs := []struct {
		queue   string
		payload any
	}{
		{QueueClassification, ClassifyJob{QueryID: query.ID, Message: query.Message}},
		{QueuePriorityScoring, ScoreJob{QueryID: query.ID, Message: query.Message}},
		{QueueRouting, RouteJob{QueryID: query.ID}},
	}
	for _, job := range jobs {
		if err := s.enqueuer.Enqueue(ctx, job.queue, job.payload); err != nil {
			s.logger.Error("failed to enqueue job",
				zap.String("queue", job.queue),
				zap.String("query_id", query.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *QueryService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
