package domain

import "time"

// ActivityAction captures what happened in an activity entry.
type ActivityAction string

const (
	ActivityCreated         ActivityAction = "created"
	ActivityStatusChanged   ActivityAction = "status_changed"
	ActivityTeamAssigned    ActivityAction = "team_assigned"
	ActivityUserAssigned    ActivityAction = "user_assigned"
	ActivityPriorityUpdated ActivityAction = "priority_updated"
)

// Activity is an immutable audit trail entry owned by the query it
// references. A nil ActorID marks a system-generated entry.
type Activity struct {
	ID        string
	QueryID   string
	ActorID   *string
	Action    ActivityAction
	Metadata  map[string]any
	CreatedAt time.Time
}
