package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/domain"
)

func TestCanTransitionTable(t *testing.T) {
	workflow := NewStatusWorkflow()

	allowed := []struct {
		from, to domain.QueryStatus
	}{
		{domain.QueryStatusNew, domain.QueryStatusInProgress},
		{domain.QueryStatusNew, domain.QueryStatusEscalated},
		{domain.QueryStatusNew, domain.QueryStatusResolved},
		{domain.QueryStatusNew, domain.QueryStatusClosed},
		{domain.QueryStatusInProgress, domain.QueryStatusEscalated},
		{domain.QueryStatusInProgress, domain.QueryStatusResolved},
		{domain.QueryStatusInProgress, domain.QueryStatusClosed},
		{domain.QueryStatusEscalated, domain.QueryStatusInProgress},
		{domain.QueryStatusEscalated, domain.QueryStatusResolved},
		{domain.QueryStatusEscalated, domain.QueryStatusClosed},
		{domain.QueryStatusResolved, domain.QueryStatusClosed},
		{domain.QueryStatusResolved, domain.QueryStatusInProgress},
	}
	for _, tc := range allowed {
		assert.True(t, workflow.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct {
		from, to domain.QueryStatus
	}{
		{domain.QueryStatusInProgress, domain.QueryStatusNew},
		{domain.QueryStatusEscalated, domain.QueryStatusNew},
		{domain.QueryStatusResolved, domain.QueryStatusEscalated},
		{domain.QueryStatusNew, domain.QueryStatusNew},
	}
	for _, tc := range denied {
		assert.False(t, workflow.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestClosedIsTerminalForOperators(t *testing.T) {
	workflow := NewStatusWorkflow()

	for _, to := range []domain.QueryStatus{
		domain.QueryStatusNew,
		domain.QueryStatusInProgress,
		domain.QueryStatusEscalated,
		domain.QueryStatusResolved,
	} {
		assert.False(t, workflow.CanTransition(domain.QueryStatusClosed, to))
	}
}

func TestDetermineInitialStatus(t *testing.T) {
	workflow := NewStatusWorkflow()

	assert.Equal(t, domain.QueryStatusEscalated, workflow.DetermineInitialStatus(domain.PriorityUrgent, false))
	assert.Equal(t, domain.QueryStatusEscalated, workflow.DetermineInitialStatus(domain.PriorityHigh, true))
	assert.Equal(t, domain.QueryStatusInProgress, workflow.DetermineInitialStatus(domain.PriorityMedium, true))
	assert.Equal(t, domain.QueryStatusNew, workflow.DetermineInitialStatus(domain.PriorityMedium, false))
	assert.Equal(t, domain.QueryStatusNew, workflow.DetermineInitialStatus(domain.PriorityLow, false))
}

func TestGetStatusTransitionRuleOrder(t *testing.T) {
	workflow := NewStatusWorkflow()

	// Resolution wins over everything else.
	resolved := workflow.GetStatusTransition(domain.QueryStatusEscalated, domain.PriorityUrgent, true, true)
	require.NotNil(t, resolved)
	assert.Equal(t, domain.QueryStatusResolved, resolved.To)
	assert.Equal(t, "Query marked as resolved", resolved.Reason)
	assert.False(t, resolved.Auto)

	urgent := workflow.GetStatusTransition(domain.QueryStatusInProgress, domain.PriorityUrgent, true, false)
	require.NotNil(t, urgent)
	assert.Equal(t, domain.QueryStatusEscalated, urgent.To)
	assert.Equal(t, "Priority upgraded to urgent", urgent.Reason)
	assert.True(t, urgent.Auto)

	high := workflow.GetStatusTransition(domain.QueryStatusNew, domain.PriorityHigh, false, false)
	require.NotNil(t, high)
	assert.Equal(t, domain.QueryStatusEscalated, high.To)
	assert.Equal(t, "High priority query requires escalation", high.Reason)

	assigned := workflow.GetStatusTransition(domain.QueryStatusNew, domain.PriorityMedium, true, false)
	require.NotNil(t, assigned)
	assert.Equal(t, domain.QueryStatusInProgress, assigned.To)
	assert.Equal(t, "Query assigned to team/user", assigned.Reason)

	none := workflow.GetStatusTransition(domain.QueryStatusInProgress, domain.PriorityMedium, true, false)
	assert.Nil(t, none)
}

func TestGetStatusTransitionNoRuleForSettledStates(t *testing.T) {
	workflow := NewStatusWorkflow()

	// Already escalated: the urgent rule does not re-fire.
	assert.Nil(t, workflow.GetStatusTransition(domain.QueryStatusEscalated, domain.PriorityUrgent, true, false))
	// High priority only escalates out of new.
	assert.Nil(t, workflow.GetStatusTransition(domain.QueryStatusInProgress, domain.PriorityHigh, true, false))
	// Resolution of an already resolved query is a no-op.
	assert.Nil(t, workflow.GetStatusTransition(domain.QueryStatusResolved, domain.PriorityMedium, true, true))
}

// The urgent rule has no closed-state guard: re-triaging a closed query with
// an urgent verdict reopens it as escalated.
func TestUrgentVerdictReopensClosedQuery(t *testing.T) {
	workflow := NewStatusWorkflow()

	transition := workflow.GetStatusTransition(domain.QueryStatusClosed, domain.PriorityUrgent, true, false)
	require.NotNil(t, transition)
	assert.Equal(t, domain.QueryStatusClosed, transition.From)
	assert.Equal(t, domain.QueryStatusEscalated, transition.To)

	// Resolution, by contrast, never touches a closed query.
	assert.Nil(t, workflow.GetStatusTransition(domain.QueryStatusClosed, domain.PriorityMedium, true, true))
}

func TestShouldAutoEscalate(t *testing.T) {
	workflow := NewStatusWorkflow()

	assert.True(t, workflow.ShouldAutoEscalate(domain.PriorityUrgent, domain.QueryStatusNew))
	assert.True(t, workflow.ShouldAutoEscalate(domain.PriorityUrgent, domain.QueryStatusInProgress))
	assert.False(t, workflow.ShouldAutoEscalate(domain.PriorityUrgent, domain.QueryStatusEscalated))
	assert.True(t, workflow.ShouldAutoEscalate(domain.PriorityHigh, domain.QueryStatusNew))
	assert.False(t, workflow.ShouldAutoEscalate(domain.PriorityHigh, domain.QueryStatusInProgress))
	assert.False(t, workflow.ShouldAutoEscalate(domain.PriorityMedium, domain.QueryStatusNew))
}
