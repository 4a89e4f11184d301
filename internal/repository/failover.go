package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

// Backend identifiers reported by the breaker health signal.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Breaker is a one-way circuit breaker shared by the failover repositories.
// It starts on the primary backend and trips permanently to the in-memory
// backend on the first connectivity failure, logging the transition once.
type Breaker struct {
	logger  *zap.Logger
	tripped atomic.Bool
}

// NewBreaker builds a breaker in the primary (untripped) state.
func NewBreaker(logger *zap.Logger) *Breaker {
	return &Breaker{logger: logger}
}

// Tripped reports whether the fallback backend is active.
func (b *Breaker) Tripped() bool {
	return b.tripped.Load()
}

// Backend returns the active backend name for health reporting.
func (b *Breaker) Backend() string {
	if b.Tripped() {
		return BackendMemory
	}
	return BackendPostgres
}

// Trip switches to the fallback backend for the rest of the process
// lifetime.
func (b *Breaker) Trip(reason string, err error) {
	if b.tripped.CompareAndSwap(false, true) {
		b.logger.Warn("primary store unavailable, switching to in-memory fallback",
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

// isUnavailable classifies an error as a store-connectivity failure. Row
// misses and server-side errors pass through untouched; only transport-level
// failures trip the breaker.
func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, context.Canceled) {
		return false
	}
	var pgErr *pgconn.PgError
	return !errors.As(err, &pgErr)
}

// FailoverQueryRepository serves from the primary QueryRepository until the
// breaker trips, then from the in-memory fallback.
type FailoverQueryRepository struct {
	primary  QueryRepository
	fallback QueryRepository
	breaker  *Breaker
}

// NewFailoverQueryRepository wires a primary and fallback pair.
func NewFailoverQueryRepository(primary, fallback QueryRepository, breaker *Breaker) *FailoverQueryRepository {
	return &FailoverQueryRepository{primary: primary, fallback: fallback, breaker: breaker}
}

func (r *FailoverQueryRepository) Create(ctx context.Context, query *domain.Query) error {
	if r.breaker.Tripped() {
		return r.fallback.Create(ctx, query)
	}
	err := r.primary.Create(ctx, query)
	if isUnavailable(err) {
		r.breaker.Trip("query create", err)
		return r.fallback.Create(ctx, query)
	}
	return err
}

func (r *FailoverQueryRepository) FindByID(ctx context.Context, id string) (*domain.Query, error) {
	return failoverCall(ctx, r.breaker, "query find", id, r.primary.FindByID, r.fallback.FindByID)
}

func (r *FailoverQueryRepository) List(ctx context.Context) ([]domain.Query, error) {
	if r.breaker.Tripped() {
		return r.fallback.List(ctx)
	}
	result, err := r.primary.List(ctx)
	if isUnavailable(err) {
		r.breaker.Trip("query list", err)
		return r.fallback.List(ctx)
	}
	return result, err
}

func (r *FailoverQueryRepository) UpdatePriority(ctx context.Context, id string, priority domain.QueryPriority) (*domain.Query, error) {
	return failoverCall(ctx, r.breaker, "query update priority", id,
		func(ctx context.Context, id string) (*domain.Query, error) { return r.primary.UpdatePriority(ctx, id, priority) },
		func(ctx context.Context, id string) (*domain.Query, error) { return r.fallback.UpdatePriority(ctx, id, priority) },
	)
}

func (r *FailoverQueryRepository) UpdateStatus(ctx context.Context, id string, status domain.QueryStatus) (*domain.Query, error) {
	return failoverCall(ctx, r.breaker, "query update status", id,
		func(ctx context.Context, id string) (*domain.Query, error) { return r.primary.UpdateStatus(ctx, id, status) },
		func(ctx context.Context, id string) (*domain.Query, error) { return r.fallback.UpdateStatus(ctx, id, status) },
	)
}

func (r *FailoverQueryRepository) UpdateTags(ctx context.Context, id string, tags []domain.Tag) (*domain.Query, error) {
	return failoverCall(ctx, r.breaker, "query update tags", id,
		func(ctx context.Context, id string) (*domain.Query, error) { return r.primary.UpdateTags(ctx, id, tags) },
		func(ctx context.Context, id string) (*domain.Query, error) { return r.fallback.UpdateTags(ctx, id, tags) },
	)
}

func (r *FailoverQueryRepository) Assign(ctx context.Context, id string, userID, teamID *string) (*domain.Query, error) {
	return failoverCall(ctx, r.breaker, "query assign", id,
		func(ctx context.Context, id string) (*domain.Query, error) { return r.primary.Assign(ctx, id, userID, teamID) },
		func(ctx context.Context, id string) (*domain.Query, error) { return r.fallback.Assign(ctx, id, userID, teamID) },
	)
}

func (r *FailoverQueryRepository) UpdateInsights(ctx context.Context, id string, insights *domain.ClassifierInsights) (*domain.Query, error) {
	return failoverCall(ctx, r.breaker, "query update insights", id,
		func(ctx context.Context, id string) (*domain.Query, error) { return r.primary.UpdateInsights(ctx, id, insights) },
		func(ctx context.Context, id string) (*domain.Query, error) { return r.fallback.UpdateInsights(ctx, id, insights) },
	)
}

func failoverCall[T any](ctx context.Context, breaker *Breaker, reason, id string,
	primary func(context.Context, string) (T, error),
	fallback func(context.Context, string) (T, error),
) (T, error) {
	if breaker.Tripped() {
		return fallback(ctx, id)
	}
	result, err := primary(ctx, id)
	if isUnavailable(err) {
		breaker.Trip(reason, err)
		return fallback(ctx, id)
	}
	return result, err
}

// FailoverTeamRepository serves from the primary TeamRepository until the
// breaker trips.
type FailoverTeamRepository struct {
	primary  TeamRepository
	fallback TeamRepository
	breaker  *Breaker
}

// NewFailoverTeamRepository wires a primary and fallback pair.
func NewFailoverTeamRepository(primary, fallback TeamRepository, breaker *Breaker) *FailoverTeamRepository {
	return &FailoverTeamRepository{primary: primary, fallback: fallback, breaker: breaker}
}

func (r *FailoverTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	if r.breaker.Tripped() {
		return r.fallback.Create(ctx, team)
	}
	err := r.primary.Create(ctx, team)
	if isUnavailable(err) {
		r.breaker.Trip("team create", err)
		return r.fallback.Create(ctx, team)
	}
	return err
}

func (r *FailoverTeamRepository) FindAll(ctx context.Context) ([]domain.Team, error) {
	if r.breaker.Tripped() {
		return r.fallback.FindAll(ctx)
	}
	result, err := r.primary.FindAll(ctx)
	if isUnavailable(err) {
		r.breaker.Trip("team list", err)
		return r.fallback.FindAll(ctx)
	}
	return result, err
}

func (r *FailoverTeamRepository) FindByID(ctx context.Context, id string) (*domain.Team, error) {
	return failoverCall(ctx, r.breaker, "team find", id, r.primary.FindByID, r.fallback.FindByID)
}

func (r *FailoverTeamRepository) FindByName(ctx context.Context, name string) (*domain.Team, error) {
	return failoverCall(ctx, r.breaker, "team find by name", name, r.primary.FindByName, r.fallback.FindByName)
}

func (r *FailoverTeamRepository) FindAvailableUsers(ctx context.Context, teamID string) ([]domain.User, error) {
	return failoverCall(ctx, r.breaker, "team users", teamID, r.primary.FindAvailableUsers, r.fallback.FindAvailableUsers)
}

// FailoverActivityRepository serves from the primary ActivityRepository until
// the breaker trips.
type FailoverActivityRepository struct {
	primary  ActivityRepository
	fallback ActivityRepository
	breaker  *Breaker
}

// NewFailoverActivityRepository wires a primary and fallback pair.
func NewFailoverActivityRepository(primary, fallback ActivityRepository, breaker *Breaker) *FailoverActivityRepository {
	return &FailoverActivityRepository{primary: primary, fallback: fallback, breaker: breaker}
}

func (r *FailoverActivityRepository) Log(ctx context.Context, queryID string, action domain.ActivityAction, metadata map[string]any, actorID *string) (*domain.Activity, error) {
	if r.breaker.Tripped() {
		return r.fallback.Log(ctx, queryID, action, metadata, actorID)
	}
	result, err := r.primary.Log(ctx, queryID, action, metadata, actorID)
	if isUnavailable(err) {
		r.breaker.Trip("activity log", err)
		return r.fallback.Log(ctx, queryID, action, metadata, actorID)
	}
	return result, err
}

func (r *FailoverActivityRepository) ListByQuery(ctx context.Context, queryID string) ([]domain.Activity, error) {
	return failoverCall(ctx, r.breaker, "activity list", queryID, r.primary.ListByQuery, r.fallback.ListByQuery)
}
