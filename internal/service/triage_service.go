package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// TriageResult summarizes one triage pass over a query.
type TriageResult struct {
	QueryID          string
	Priority         domain.QueryPriority
	Status           domain.QueryStatus
	Assignment       AssignmentResult
	StatusTransition *StatusTransition
}

// TriageService sequences priority detection, team resolution, and status
// transition into one pass per query, then persists the outcome and appends
// activity records.
type TriageService struct {
	queries    repository.QueryRepository
	activities repository.ActivityRepository
	detector   *PriorityDetector
	resolver   *TeamResolver
	workflow   *StatusWorkflow
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	QueryRepo    repository.QueryRepository
	ActivityRepo repository.ActivityRepository
	Detector     *PriorityDetector
	Resolver     *TeamResolver
	Workflow     *StatusWorkflow
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewTriageService constructs the service.
func NewTriageService(deps TriageDependencies) *TriageService {
	return &TriageService{
		queries:    deps.QueryRepo,
		activities: deps.ActivityRepo,
		detector:   deps.Detector,
		resolver:   deps.Resolver,
		workflow:   deps.Workflow,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// ProcessQuery runs the full triage pass for a query id. The same path
// serves first-time triage, manual re-triage, and batch runs; re-invocation
// with unchanged external state converges on the same outcome, so broker
// redelivery is safe.
func (s *TriageService) ProcessQuery(ctx context.Context, queryID string) (*TriageResult, error) {
	s.logger.Info("starting triage", zap.String("query_id", queryID))

	query, err := s.queries.FindByID(ctx, queryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("query", map[string]any{"query_id": queryID})
		}
		return nil, apperrors.MapError(err)
	}

	priorityResult := s.detector.Detect(query.Message, query.Tags, query.Insights)
	assignment := s.resolver.AssignTeam(ctx, query.Tags, query.Channel, query.Message, query.Insights)

	isAssigned := assignment.TeamID != nil || assignment.UserID != nil
	initialStatus := s.workflow.DetermineInitialStatus(priorityResult.Priority, isAssigned)
	transition := s.workflow.GetStatusTransition(query.Status, priorityResult.Priority, isAssigned, false)

	finalStatus := initialStatus
	if transition != nil {
		finalStatus = transition.To
	}

	if err := s.applyUpdates(ctx, queryID, priorityResult.Priority, finalStatus, assignment); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.logActivities(ctx, queryID, priorityResult, assignment, transition); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTriage(string(priorityResult.Priority))
	s.publishTriaged(ctx, queryID, priorityResult.Priority, finalStatus, assignment)

	s.logger.Info("triage complete",
		zap.String("query_id", queryID),
		zap.String("priority", string(priorityResult.Priority)),
		zap.String("status", string(finalStatus)),
		zap.Stringp("team_id", assignment.TeamID),
		zap.Stringp("user_id", assignment.UserID),
	)

	return &TriageResult{
		QueryID:          queryID,
		Priority:         priorityResult.Priority,
		Status:           finalStatus,
		Assignment:       assignment,
		StatusTransition: transition,
	}, nil
}

// applyUpdates issues the three persistence writes concurrently. They are
// independent; no write depends on another's completion.
func (s *TriageService) applyUpdates(ctx context.Context, queryID string, priority domain.QueryPriority, status domain.QueryStatus, assignment AssignmentResult) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		_, err := s.queries.UpdatePriority(groupCtx, queryID, priority)
		return err
	})
	group.Go(func() error {
		_, err := s.queries.UpdateStatus(groupCtx, queryID, status)
		return err
	})
	if assignment.TeamID != nil || assignment.UserID != nil {
		group.Go(func() error {
			_, err := s.queries.Assign(groupCtx, queryID, assignment.UserID, assignment.TeamID)
			return err
		})
	}

	return group.Wait()
}

// logActivities appends the audit records for the pass, also concurrently.
// Ordering between them is not promised.
func (s *TriageService) logActivities(ctx context.Context, queryID string, priorityResult PriorityResult, assignment AssignmentResult, transition *StatusTransition) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		_, err := s.activities.Log(groupCtx, queryID, domain.ActivityPriorityUpdated, map[string]any{
			"priority": priorityResult.Priority,
			"reasons":  priorityResult.Reasons,
			"auto":     true,
		}, nil)
		return err
	})

	if assignment.TeamID != nil {
		group.Go(func() error {
			_, err := s.activities.Log(groupCtx, queryID, domain.ActivityTeamAssigned, map[string]any{
				"teamId":   *assignment.TeamID,
				"teamName": assignment.TeamName,
				"reason":   assignment.Reason,
				"auto":     true,
			}, nil)
			return err
		})
	}
	if assignment.UserID != nil {
		group.Go(func() error {
			_, err := s.activities.Log(groupCtx, queryID, domain.ActivityUserAssigned, map[string]any{
				"userId":   *assignment.UserID,
				"userName": assignment.UserName,
				"auto":     true,
			}, nil)
			return err
		})
	}
	if transition != nil {
		group.Go(func() error {
			_, err := s.activities.Log(groupCtx, queryID, domain.ActivityStatusChanged, map[string]any{
				"from":   transition.From,
				"to":     transition.To,
				"reason": transition.Reason,
				"auto":   transition.Auto,
			}, nil)
			return err
		})
	}

	return group.Wait()
}

func (s *TriageService) publishTriaged(ctx context.Context, queryID string, priority domain.QueryPriority, status domain.QueryStatus, assignment AssignmentResult) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventQueryTriaged,
		QueryID:   queryID,
		Timestamp: time.Now(),
		Payload: events.QueryTriagedPayload{
			Priority: priority,
			Status:   status,
			TeamID:   assignment.TeamID,
			TeamName: assignment.TeamName,
			UserID:   assignment.UserID,
			Reason:   assignment.Reason,
		},
	})
}
