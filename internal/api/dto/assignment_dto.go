package dto

import (
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/service"
)

// BatchFilterRequest selects queries for a filtered batch run.
type BatchFilterRequest struct {
	Status         domain.QueryStatus   `json:"status"`
	Priority       domain.QueryPriority `json:"priority"`
	Channel        domain.QueryChannel  `json:"channel"`
	UnassignedOnly bool                 `json:"unassignedOnly"`
}

// ToFilter maps the request to the service filter.
func (r BatchFilterRequest) ToFilter() service.BatchFilter {
	return service.BatchFilter{
		Status:         r.Status,
		Priority:       r.Priority,
		Channel:        r.Channel,
		UnassignedOnly: r.UnassignedOnly,
	}
}

// TriageResponse reports one triage pass.
type TriageResponse struct {
	QueryID    string               `json:"queryId"`
	Priority   domain.QueryPriority `json:"priority"`
	Status     domain.QueryStatus   `json:"status"`
	TeamID     *string              `json:"teamId"`
	TeamName   string               `json:"teamName,omitempty"`
	AssigneeID *string              `json:"assigneeId"`
	Reason     string               `json:"reason"`
}

// TriageFromResult maps a triage result.
func TriageFromResult(res *service.TriageResult) TriageResponse {
	return TriageResponse{
		QueryID:    res.QueryID,
		Priority:   res.Priority,
		Status:     res.Status,
		TeamID:     res.Assignment.TeamID,
		TeamName:   res.Assignment.TeamName,
		AssigneeID: res.Assignment.UserID,
		Reason:     res.Assignment.Reason,
	}
}
