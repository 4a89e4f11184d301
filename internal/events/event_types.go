package events

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventQueryCreated       EventType = "query_created"
	EventQueryTriaged       EventType = "query_triaged"
	EventQueryStatusChanged EventType = "query_status_changed"
	EventQueryAssigned      EventType = "query_assigned"
)

// Actor encapsulates actor metadata for an event. A nil UserID marks a
// system-generated event.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	QueryID   string      `json:"query_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// QueryCreatedPayload payload.
type QueryCreatedPayload struct {
	Channel  domain.QueryChannel  `json:"channel"`
	Priority domain.QueryPriority `json:"priority"`
	Status   domain.QueryStatus   `json:"status"`
	Subject  string               `json:"subject"`
}

// QueryTriagedPayload payload.
type QueryTriagedPayload struct {
	Priority domain.QueryPriority `json:"priority"`
	Status   domain.QueryStatus   `json:"status"`
	TeamID   *string              `json:"team_id,omitempty"`
	TeamName string               `json:"team_name,omitempty"`
	UserID   *string              `json:"user_id,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

// QueryStatusChangedPayload payload.
type QueryStatusChangedPayload struct {
	OldStatus domain.QueryStatus `json:"old_status"`
	NewStatus domain.QueryStatus `json:"new_status"`
	Reason    string             `json:"reason,omitempty"`
	Auto      bool               `json:"auto"`
}

// QueryAssignedPayload payload.
type QueryAssignedPayload struct {
	TeamID *string `json:"team_id,omitempty"`
	UserID *string `json:"user_id,omitempty"`
	Reason string  `json:"reason,omitempty"`
}
