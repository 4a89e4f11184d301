package domain

import "time"

// QueryChannel identifies the inbound channel a query arrived on.
type QueryChannel string

const (
	ChannelEmail     QueryChannel = "email"
	ChannelSocial    QueryChannel = "social"
	ChannelChat      QueryChannel = "chat"
	ChannelCommunity QueryChannel = "community"
)

// Valid reports whether the channel is one of the known inbound channels.
func (c QueryChannel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSocial, ChannelChat, ChannelCommunity:
		return true
	}
	return false
}

// QueryStatus enumerates lifecycle states for queries.
type QueryStatus string

const (
	QueryStatusNew        QueryStatus = "new"
	QueryStatusInProgress QueryStatus = "in_progress"
	QueryStatusEscalated  QueryStatus = "escalated"
	QueryStatusResolved   QueryStatus = "resolved"
	QueryStatusClosed     QueryStatus = "closed"
)

// Valid reports whether the status is one of the workflow states.
func (s QueryStatus) Valid() bool {
	switch s {
	case QueryStatusNew, QueryStatusInProgress, QueryStatusEscalated, QueryStatusResolved, QueryStatusClosed:
		return true
	}
	return false
}

// QueryPriority enumerates triage urgency verdicts.
type QueryPriority string

const (
	PriorityLow    QueryPriority = "low"
	PriorityMedium QueryPriority = "medium"
	PriorityHigh   QueryPriority = "high"
	PriorityUrgent QueryPriority = "urgent"
)

// Valid reports whether the priority is one of the triage levels.
func (p QueryPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Tag is a weighted label attached to a query, from manual input or the
// classifier.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ClassifierInsights is the output of the external classification service.
type ClassifierInsights struct {
	Category   string  `json:"category"`
	Sentiment  string  `json:"sentiment"`
	Urgency    string  `json:"urgency"`
	Confidence float64 `json:"confidence"`
}

// Query is the aggregate for inbound customer-support messages. Priority and
// status are always set; defaults are medium/new at creation.
type Query struct {
	ID            string
	Channel       QueryChannel
	Subject       string
	Message       string
	CustomerName  string
	CustomerEmail string
	Tags          []Tag
	Priority      QueryPriority
	Status        QueryStatus
	TeamID        *string
	AssigneeID    *string
	Insights      *ClassifierInsights
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAssigned reports whether the query is routed to a team or user.
func (q *Query) IsAssigned() bool {
	return q.TeamID != nil || q.AssigneeID != nil
}
