package service

import "github.com/spec-kit/triage-service/internal/domain"

// StatusTransition describes one lifecycle move. Auto marks transitions the
// workflow decided on its own rather than on an operator signal.
type StatusTransition struct {
	From   domain.QueryStatus
	To     domain.QueryStatus
	Reason string
	Auto   bool
}

var statusWorkflow = map[domain.QueryStatus][]domain.QueryStatus{
	domain.QueryStatusNew:        {domain.QueryStatusInProgress, domain.QueryStatusEscalated, domain.QueryStatusResolved, domain.QueryStatusClosed},
	domain.QueryStatusInProgress: {domain.QueryStatusEscalated, domain.QueryStatusResolved, domain.QueryStatusClosed},
	domain.QueryStatusEscalated:  {domain.QueryStatusInProgress, domain.QueryStatusResolved, domain.QueryStatusClosed},
	domain.QueryStatusResolved:   {domain.QueryStatusClosed, domain.QueryStatusInProgress},
	domain.QueryStatusClosed:     {},
}

// StatusWorkflow is the finite-state machine over query lifecycle statuses.
type StatusWorkflow struct{}

// NewStatusWorkflow constructs the workflow.
func NewStatusWorkflow() *StatusWorkflow {
	return &StatusWorkflow{}
}

// CanTransition checks membership in the transition table. Closed is
// terminal.
func (w *StatusWorkflow) CanTransition(from, to domain.QueryStatus) bool {
	for _, candidate := range statusWorkflow[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// DetermineInitialStatus picks a status for a query with no prior status.
func (w *StatusWorkflow) DetermineInitialStatus(priority domain.QueryPriority, isAssigned bool) domain.QueryStatus {
	if priority == domain.PriorityUrgent || priority == domain.PriorityHigh {
		return domain.QueryStatusEscalated
	}
	if isAssigned {
		return domain.QueryStatusInProgress
	}
	return domain.QueryStatusNew
}

// GetStatusTransition evaluates the automatic-transition rules in fixed
// order; the first applicable rule wins, else nil. Note that the urgent rule
// has no guard against re-escalating a closed query; re-triaging a closed
// query with an urgent verdict reopens it as escalated.
func (w *StatusWorkflow) GetStatusTransition(current domain.QueryStatus, priority domain.QueryPriority, isAssigned, isResolved bool) *StatusTransition {
	if isResolved && current != domain.QueryStatusResolved && current != domain.QueryStatusClosed {
		return &StatusTransition{
			From:   current,
			To:     domain.QueryStatusResolved,
			Reason: "Query marked as resolved",
			Auto:   false,
		}
	}

	if priority == domain.PriorityUrgent && current != domain.QueryStatusEscalated {
		return &StatusTransition{
			From:   current,
			To:     domain.QueryStatusEscalated,
			Reason: "Priority upgraded to urgent",
			Auto:   true,
		}
	}

	if priority == domain.PriorityHigh && current == domain.QueryStatusNew {
		return &StatusTransition{
			From:   current,
			To:     domain.QueryStatusEscalated,
			Reason: "High priority query requires escalation",
			Auto:   true,
		}
	}

	if isAssigned && current == domain.QueryStatusNew {
		return &StatusTransition{
			From:   current,
			To:     domain.QueryStatusInProgress,
			Reason: "Query assigned to team/user",
			Auto:   true,
		}
	}

	return nil
}

// ShouldAutoEscalate reports whether the priority verdict alone forces an
// escalation for the current status.
func (w *StatusWorkflow) ShouldAutoEscalate(priority domain.QueryPriority, current domain.QueryStatus) bool {
	if priority == domain.PriorityUrgent && current != domain.QueryStatusEscalated {
		return true
	}
	return priority == domain.PriorityHigh && current == domain.QueryStatusNew
}
