package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

var errConnRefused = errors.New("dial tcp: connection refused")

// brokenQueryRepository fails every call with a transport-level error.
type brokenQueryRepository struct {
	err error
}

func (r brokenQueryRepository) Create(context.Context, *domain.Query) error { return r.err }
func (r brokenQueryRepository) FindByID(context.Context, string) (*domain.Query, error) {
	return nil, r.err
}
func (r brokenQueryRepository) List(context.Context) ([]domain.Query, error) { return nil, r.err }
func (r brokenQueryRepository) UpdatePriority(context.Context, string, domain.QueryPriority) (*domain.Query, error) {
	return nil, r.err
}
func (r brokenQueryRepository) UpdateStatus(context.Context, string, domain.QueryStatus) (*domain.Query, error) {
	return nil, r.err
}
func (r brokenQueryRepository) UpdateTags(context.Context, string, []domain.Tag) (*domain.Query, error) {
	return nil, r.err
}
func (r brokenQueryRepository) Assign(context.Context, string, *string, *string) (*domain.Query, error) {
	return nil, r.err
}
func (r brokenQueryRepository) UpdateInsights(context.Context, string, *domain.ClassifierInsights) (*domain.Query, error) {
	return nil, r.err
}

func TestBreakerStartsOnPrimary(t *testing.T) {
	breaker := NewBreaker(zap.NewNop())

	assert.False(t, breaker.Tripped())
	assert.Equal(t, BackendPostgres, breaker.Backend())
}

func TestBreakerTripIsOneWay(t *testing.T) {
	breaker := NewBreaker(zap.NewNop())

	breaker.Trip("test", errConnRefused)
	breaker.Trip("again", nil)

	assert.True(t, breaker.Tripped())
	assert.Equal(t, BackendMemory, breaker.Backend())
}

func TestFailoverSwitchesToFallbackOnOutage(t *testing.T) {
	breaker := NewBreaker(zap.NewNop())
	fallback := NewMemoryQueryRepository()
	repo := NewFailoverQueryRepository(brokenQueryRepository{err: errConnRefused}, fallback, breaker)

	query := &domain.Query{Channel: domain.ChannelEmail, Message: "hello"}
	require.NoError(t, repo.Create(context.Background(), query))

	assert.True(t, breaker.Tripped())

	// Subsequent reads come from the fallback without touching the primary.
	found, err := repo.FindByID(context.Background(), query.ID)
	require.NoError(t, err)
	assert.Equal(t, query.ID, found.ID)
}

func TestFailoverPassesThroughRowMisses(t *testing.T) {
	breaker := NewBreaker(zap.NewNop())
	repo := NewFailoverQueryRepository(
		brokenQueryRepository{err: pgx.ErrNoRows}, NewMemoryQueryRepository(), breaker)

	_, err := repo.FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.False(t, breaker.Tripped(), "a row miss must not trip the breaker")
}

func TestFailoverPassesThroughServerErrors(t *testing.T) {
	breaker := NewBreaker(zap.NewNop())
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	repo := NewFailoverQueryRepository(
		brokenQueryRepository{err: pgErr}, NewMemoryQueryRepository(), breaker)

	_, err := repo.UpdatePriority(context.Background(), "id", domain.PriorityHigh)

	require.Error(t, err)
	assert.False(t, breaker.Tripped(), "a server-side error must not trip the breaker")
}

func TestFailoverSharedBreakerAcrossRepositories(t *testing.T) {
	breaker := NewBreaker(zap.NewNop())
	queries := NewFailoverQueryRepository(
		brokenQueryRepository{err: errConnRefused}, NewMemoryQueryRepository(), breaker)

	teamFallback := NewMemoryTeamRepository()
	require.NoError(t, teamFallback.Create(context.Background(), &domain.Team{Name: domain.TeamSupport}))
	teams := NewFailoverTeamRepository(brokenTeamRepository{}, teamFallback, breaker)

	// Tripping via the query repo moves the team repo to its fallback too.
	_, _ = queries.List(context.Background())
	require.True(t, breaker.Tripped())

	team, err := teams.FindByName(context.Background(), domain.TeamSupport)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamSupport, team.Name)
}

// brokenTeamRepository panics if touched; the shared-breaker test asserts it
// is bypassed entirely once the breaker has tripped.
type brokenTeamRepository struct{}

func (brokenTeamRepository) Create(context.Context, *domain.Team) error { panic("unreachable") }
func (brokenTeamRepository) FindAll(context.Context) ([]domain.Team, error) {
	panic("unreachable")
}
func (brokenTeamRepository) FindByID(context.Context, string) (*domain.Team, error) {
	panic("unreachable")
}
func (brokenTeamRepository) FindByName(context.Context, string) (*domain.Team, error) {
	panic("unreachable")
}
func (brokenTeamRepository) FindAvailableUsers(context.Context, string) ([]domain.User, error) {
	panic("unreachable")
}
