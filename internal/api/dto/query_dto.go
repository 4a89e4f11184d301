package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CreateQueryRequest payload.
type CreateQueryRequest struct {
	Channel       domain.QueryChannel `json:"channel"`
	Subject       string              `json:"subject"`
	Message       string              `json:"message"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Tags          []domain.Tag        `json:"tags"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.QueryStatus `json:"status"`
	Reason  string             `json:"reason"`
	ActorID *string            `json:"actor_id"`
}

// QueryResponse is the full query representation.
type QueryResponse struct {
	ID            string                    `json:"id"`
	Channel       domain.QueryChannel       `json:"channel"`
	Subject       string                    `json:"subject"`
	Message       string                    `json:"message"`
	CustomerName  string                    `json:"customer_name"`
	CustomerEmail string                    `json:"customer_email"`
	Tags          []domain.Tag              `json:"tags"`
	Priority      domain.QueryPriority      `json:"priority"`
	Status        domain.QueryStatus        `json:"status"`
	TeamID        *string                   `json:"team_id"`
	AssigneeID    *string                   `json:"assignee_id"`
	Insights      *domain.ClassifierInsights `json:"insights,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// ActivityResponse is one audit trail entry.
type ActivityResponse struct {
	ID        string                `json:"id"`
	QueryID   string                `json:"query_id"`
	ActorID   *string               `json:"actor_id"`
	Action    domain.ActivityAction `json:"action"`
	Metadata  map[string]any        `json:"metadata"`
	CreatedAt time.Time             `json:"created_at"`
}

// TeamResponse describes a team.
type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueryFromDomain maps a domain query to its response shape.
func QueryFromDomain(q *domain.Query) QueryResponse {
	tags := q.Tags
	if tags == nil {
		tags = []domain.Tag{}
	}
	return QueryResponse{
		ID:            q.ID,
		Channel:       q.Channel,
		Subject:       q.Subject,
		Message:       q.Message,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		Tags:          tags,
		Priority:      q.Priority,
		Status:        q.Status,
		TeamID:        q.TeamID,
		AssigneeID:    q.AssigneeID,
		Insights:      q.Insights,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// ActivityFromDomain maps an activity record.
func ActivityFromDomain(a *domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        a.ID,
		QueryID:   a.QueryID,
		ActorID:   a.ActorID,
		Action:    a.Action,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

// TeamFromDomain maps a team record.
func TeamFromDomain(t *domain.Team) TeamResponse {
	return TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}
