package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// filterResultCap bounds the per-item result list of filtered batch runs.
// Stats counters are never capped.
const filterResultCap = 100

// BatchFilter selects queries for a filtered batch run. Provided fields are
// ANDed; zero values are ignored.
type BatchFilter struct {
	Status         domain.QueryStatus
	Priority       domain.QueryPriority
	Channel        domain.QueryChannel
	UnassignedOnly bool
}

// BatchItemResult reports one processed query.
type BatchItemResult struct {
	QueryID  string `json:"queryId"`
	Success  bool   `json:"success"`
	TeamName string `json:"teamName,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchResult aggregates a batch run. Processed always equals
// assigned + skipped + errors.
type BatchResult struct {
	Processed int               `json:"processed"`
	Assigned  int               `json:"assigned"`
	Skipped   int               `json:"skipped"`
	Errors    int               `json:"errors"`
	Results   []BatchItemResult `json:"results"`
}

// AssignmentStats summarizes the current assignment state of all queries.
type AssignmentStats struct {
	Total      int            `json:"total"`
	Assigned   int            `json:"assigned"`
	Unassigned int            `json:"unassigned"`
	ByTeam     map[string]int `json:"byTeam"`
}

// BatchTriageService drives the triage service over filtered query sets.
// Items are processed sequentially; one failure never aborts the batch.
type BatchTriageService struct {
	queries repository.QueryRepository
	teams   repository.TeamRepository
	triage  *TriageService
	logger  *zap.Logger
}

// NewBatchTriageService constructs the service.
func NewBatchTriageService(queries repository.QueryRepository, teams repository.TeamRepository, triage *TriageService, logger *zap.Logger) *BatchTriageService {
	return &BatchTriageService{queries: queries, teams: teams, triage: triage, logger: logger}
}

// AssignAllUnassigned triages every query that has no team yet.
func (s *BatchTriageService) AssignAllUnassigned(ctx context.Context) (*BatchResult, error) {
	all, err := s.queries.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var unassigned []domain.Query
	for _, query := range all {
		if query.TeamID == nil {
			unassigned = append(unassigned, query)
		}
	}
	s.logger.Info("starting batch assignment",
		zap.Int("total", len(all)),
		zap.Int("unassigned", len(unassigned)),
	)

	return s.run(ctx, unassigned, 0), nil
}

// AssignByFilter triages the queries matching the filter. The result list is
// capped at 100 entries; counters cover the whole set.
func (s *BatchTriageService) AssignByFilter(ctx context.Context, filter BatchFilter) (*BatchResult, error) {
	all, err := s.queries.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var matched []domain.Query
	for _, query := range all {
		if filter.UnassignedOnly && query.TeamID != nil {
			continue
		}
		if filter.Status != "" && query.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && query.Priority != filter.Priority {
			continue
		}
		if filter.Channel != "" && query.Channel != filter.Channel {
			continue
		}
		matched = append(matched, query)
	}
	s.logger.Info("starting filtered assignment",
		zap.Int("total", len(all)),
		zap.Int("matched", len(matched)),
	)

	return s.run(ctx, matched, filterResultCap), nil
}

// Stats reports assignment coverage across all queries.
func (s *BatchTriageService) Stats(ctx context.Context) (*AssignmentStats, error) {
	all, err := s.queries.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	teamNames := map[string]string{}
	if teams, err := s.teams.FindAll(ctx); err == nil {
		for _, team := range teams {
			teamNames[team.ID] = team.Name
		}
	}

	stats := &AssignmentStats{Total: len(all), ByTeam: map[string]int{}}
	for _, query := range all {
		if query.TeamID == nil {
			stats.Unassigned++
			continue
		}
		stats.Assigned++
		if name, ok := teamNames[*query.TeamID]; ok {
			stats.ByTeam[name]++
		}
	}
	return stats, nil
}

func (s *BatchTriageService) run(ctx context.Context, queries []domain.Query, resultCap int) *BatchResult {
	result := &BatchResult{Results: []BatchItemResult{}}

	for _, query := range queries {
		result.Processed++
		item := BatchItemResult{QueryID: query.ID}

		triaged, err := s.triage.ProcessQuery(ctx, query.ID)
		switch {
		case err != nil:
			result.Errors++
			item.Error = err.Error()
			s.logger.Error("failed to assign query", zap.String("query_id", query.ID), zap.Error(err))
		case triaged.Assignment.TeamID != nil:
			result.Assigned++
			item.Success = true
			item.TeamName = triaged.Assignment.TeamName
		default:
			result.Skipped++
			item.Error = "No team assigned"
		}

		if resultCap == 0 || len(result.Results) < resultCap {
			result.Results = append(result.Results, item)
		}
	}

	s.logger.Info("batch assignment complete",
		zap.Int("processed", result.Processed),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result
}
