package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

type triageFixture struct {
	triage     *TriageService
	queries    *repository.MemoryQueryRepository
	teams      *repository.MemoryTeamRepository
	activities *repository.MemoryActivityRepository
	dispatcher events.Dispatcher
}

func newTriageFixture(t *testing.T) *triageFixture {
	t.Helper()
	queries := repository.NewMemoryQueryRepository()
	teams := repository.NewMemoryTeamRepository()
	activities := repository.NewMemoryActivityRepository()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()

	triage := NewTriageService(TriageDependencies{
		QueryRepo:    queries,
		ActivityRepo: activities,
		Detector:     NewPriorityDetector(),
		Resolver:     NewTeamResolver(teams, logger),
		Workflow:     NewStatusWorkflow(),
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      observability.NewMetrics(),
	})
	return &triageFixture{
		triage:     triage,
		queries:    queries,
		teams:      teams,
		activities: activities,
		dispatcher: dispatcher,
	}
}

func (f *triageFixture) createQuery(t *testing.T, query *domain.Query) *domain.Query {
	t.Helper()
	if query.Priority == "" {
		query.Priority = domain.PriorityMedium
	}
	if query.Status == "" {
		query.Status = domain.QueryStatusNew
	}
	require.NoError(t, f.queries.Create(context.Background(), query))
	return query
}

func TestProcessQueryUrgentEmailScenario(t *testing.T) {
	f := newTriageFixture(t)
	query := f.createQuery(t, &domain.Query{
		Channel: domain.ChannelEmail,
		Subject: "Cannot log in",
		Message: "My account is locked, I need immediate access, this is critical",
	})

	result, err := f.triage.ProcessQuery(context.Background(), query.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityUrgent, result.Priority)
	assert.Equal(t, domain.QueryStatusEscalated, result.Status)
	require.NotNil(t, result.Assignment.TeamID)
	assert.Equal(t, domain.TeamSupport, result.Assignment.TeamName)

	stored, err := f.queries.FindByID(context.Background(), query.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, stored.Priority)
	assert.Equal(t, domain.QueryStatusEscalated, stored.Status)
	assert.Equal(t, result.Assignment.TeamID, stored.TeamID)
}

func TestProcessQueryBillingChatScenario(t *testing.T) {
	f := newTriageFixture(t)
	query := f.createQuery(t, &domain.Query{
		Channel: domain.ChannelChat,
		Message: "I was double charged on my invoice",
		Tags:    []domain.Tag{{Name: "billing", Confidence: 0.8}},
	})

	result, err := f.triage.ProcessQuery(context.Background(), query.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TeamBilling, result.Assignment.TeamName)
	assert.Equal(t, "Matched by tag: billing", result.Assignment.Reason)
	// Assigned with no urgent/high signals: new -> in_progress.
	assert.Equal(t, domain.QueryStatusInProgress, result.Status)
}

func TestProcessQueryNotFound(t *testing.T) {
	f := newTriageFixture(t)

	_, err := f.triage.ProcessQuery(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProcessQueryWritesActivities(t *testing.T) {
	f := newTriageFixture(t)
	team := &domain.Team{Name: domain.TeamSupport, Description: "support"}
	require.NoError(t, f.teams.Create(context.Background(), team))
	f.teams.AddUser(domain.User{Name: "Avery Agent", Role: domain.RoleAgent, TeamID: &team.ID})

	query := f.createQuery(t, &domain.Query{
		Channel: domain.ChannelEmail,
		Message: "hello, quick question",
	})

	_, err := f.triage.ProcessQuery(context.Background(), query.ID)
	require.NoError(t, err)

	activities, err := f.activities.ListByQuery(context.Background(), query.ID)
	require.NoError(t, err)

	actions := map[domain.ActivityAction]domain.Activity{}
	for _, activity := range activities {
		actions[activity.Action] = activity
	}

	require.Contains(t, actions, domain.ActivityPriorityUpdated)
	assert.Equal(t, true, actions[domain.ActivityPriorityUpdated].Metadata["auto"])
	assert.NotEmpty(t, actions[domain.ActivityPriorityUpdated].Metadata["reasons"])

	require.Contains(t, actions, domain.ActivityTeamAssigned)
	assert.Equal(t, domain.TeamSupport, actions[domain.ActivityTeamAssigned].Metadata["teamName"])

	require.Contains(t, actions, domain.ActivityUserAssigned)
	assert.Equal(t, "Avery Agent", actions[domain.ActivityUserAssigned].Metadata["userName"])

	require.Contains(t, actions, domain.ActivityStatusChanged)
	assert.Equal(t, domain.QueryStatusInProgress, actions[domain.ActivityStatusChanged].Metadata["to"])
}

func TestProcessQueryIsIdempotent(t *testing.T) {
	f := newTriageFixture(t)
	query := f.createQuery(t, &domain.Query{
		Channel: domain.ChannelEmail,
		Message: "This is urgent, please fix asap",
		Tags:    []domain.Tag{{Name: "bug", Confidence: 0.9}},
	})

	first, err := f.triage.ProcessQuery(context.Background(), query.ID)
	require.NoError(t, err)
	second, err := f.triage.ProcessQuery(context.Background(), query.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, first.Status, second.Status)
	require.NotNil(t, second.Assignment.TeamID)
	assert.Equal(t, *first.Assignment.TeamID, *second.Assignment.TeamID)

	teams, err := f.teams.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestProcessQueryPublishesTriagedEvent(t *testing.T) {
	f := newTriageFixture(t)
	var received []events.Event
	f.dispatcher.Subscribe(events.EventQueryTriaged, func(_ context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	query := f.createQuery(t, &domain.Query{Channel: domain.ChannelEmail, Message: "hello"})

	_, err := f.triage.ProcessQuery(context.Background(), query.ID)
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, query.ID, received[0].QueryID)
	payload, ok := received[0].Payload.(events.QueryTriagedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TeamSupport, payload.TeamName)
}
