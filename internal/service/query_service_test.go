package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// recordingEnqueuer captures enqueued jobs instead of touching a broker.
type recordingEnqueuer struct {
	jobs []struct {
		queue   string
		payload any
	}
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, queue string, payload any) error {
	r.jobs = append(r.jobs, struct {
		queue   string
		payload any
	}{queue, payload})
	return nil
}

type queryFixture struct {
	service    *QueryService
	queries    *repository.MemoryQueryRepository
	activities *repository.MemoryActivityRepository
	enqueuer   *recordingEnqueuer
	dispatcher events.Dispatcher
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	queries := repository.NewMemoryQueryRepository()
	activities := repository.NewMemoryActivityRepository()
	enqueuer := &recordingEnqueuer{}
	dispatcher := events.NewInMemoryDispatcher()

	svc := NewQueryService(QueryDependencies{
		QueryRepo:    queries,
		ActivityRepo: activities,
		Workflow:     NewStatusWorkflow(),
		Enqueuer:     enqueuer,
		Dispatcher:   dispatcher,
		Logger:       zap.NewNop(),
	})
	return &queryFixture{
		service:    svc,
		queries:    queries,
		activities: activities,
		enqueuer:   enqueuer,
		dispatcher: dispatcher,
	}
}

func TestCreateQueryDefaultsAndJobs(t *testing.T) {
	f := newQueryFixture(t)

	query, err := f.service.Create(context.Background(), QueryCreateInput{
		Channel:       domain.ChannelEmail,
		Subject:       "  Billing question  ",
		Message:       "Why was I charged twice?",
		CustomerEmail: "jordan@example.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, query.ID)
	assert.Equal(t, "Billing question", query.Subject)
	assert.Equal(t, domain.PriorityMedium, query.Priority)
	assert.Equal(t, domain.QueryStatusNew, query.Status)

	require.Len(t, f.enqueuer.jobs, 3)
	assert.Equal(t, QueueClassification, f.enqueuer.jobs[0].queue)
	assert.Equal(t, QueuePriorityScoring, f.enqueuer.jobs[1].queue)
	assert.Equal(t, QueueRouting, f.enqueuer.jobs[2].queue)

	route, ok := f.enqueuer.jobs[2].payload.(RouteJob)
	require.True(t, ok)
	assert.Equal(t, query.ID, route.QueryID)
}

func TestCreateQueryLogsCreatedActivity(t *testing.T) {
	f := newQueryFixture(t)

	query, err := f.service.Create(context.Background(), QueryCreateInput{
		Channel: domain.ChannelChat,
		Message: "hello",
	})
	require.NoError(t, err)

	activities, err := f.activities.ListByQuery(context.Background(), query.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, domain.ActivityCreated, activities[0].Action)
	assert.Nil(t, activities[0].ActorID)
}

func TestCreateQueryPublishesEvent(t *testing.T) {
	f := newQueryFixture(t)
	var received []events.Event
	f.dispatcher.Subscribe(events.EventQueryCreated, func(_ context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	query, err := f.service.Create(context.Background(), QueryCreateInput{
		Channel: domain.ChannelEmail,
		Message: "hello",
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, query.ID, received[0].QueryID)
}

func TestGetQueryNotFound(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateStatusEnforcesWorkflow(t *testing.T) {
	f := newQueryFixture(t)
	query, err := f.service.Create(context.Background(), QueryCreateInput{
		Channel: domain.ChannelEmail,
		Message: "hello",
	})
	require.NoError(t, err)

	updated, err := f.service.UpdateStatus(context.Background(), query.ID, domain.QueryStatusInProgress, nil, "picked up")
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusInProgress, updated.Status)

	// in_progress -> new is not in the transition table.
	_, err = f.service.UpdateStatus(context.Background(), query.ID, domain.QueryStatusNew, nil, "undo")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUpdateStatusRecordsOperatorActivity(t *testing.T) {
	f := newQueryFixture(t)
	actor := "user-7"
	query, err := f.service.Create(context.Background(), QueryCreateInput{
		Channel: domain.ChannelEmail,
		Message: "hello",
	})
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), query.ID, domain.QueryStatusResolved, &actor, "fixed")
	require.NoError(t, err)

	activities, err := f.activities.ListByQuery(context.Background(), query.ID)
	require.NoError(t, err)
	require.Len(t, activities, 2)

	change := activities[1]
	assert.Equal(t, domain.ActivityStatusChanged, change.Action)
	require.NotNil(t, change.ActorID)
	assert.Equal(t, actor, *change.ActorID)
	assert.Equal(t, false, change.Metadata["auto"])
	assert.Equal(t, "fixed", change.Metadata["reason"])
}

func TestListNewestFirst(t *testing.T) {
	f := newQueryFixture(t)
	for _, msg := range []string{"first", "second", "third"} {
		_, err := f.service.Create(context.Background(), QueryCreateInput{
			Channel: domain.ChannelEmail,
			Message: msg,
		})
		require.NoError(t, err)
	}

	queries, err := f.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, queries, 3)
	assert.False(t, queries[0].CreatedAt.Before(queries[2].CreatedAt))
}
