package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
)

// The in-memory repositories back two things: the failover path when the
// primary store is unreachable, and test fixtures. They are process-local and
// non-persistent.

// MemoryQueryRepository is an in-memory QueryRepository.
type MemoryQueryRepository struct {
	mu      sync.RWMutex
	queries map[string]*domain.Query
}

// NewMemoryQueryRepository constructs an empty store.
func NewMemoryQueryRepository() *MemoryQueryRepository {
	return &MemoryQueryRepository{queries: make(map[string]*domain.Query)}
}

func (r *MemoryQueryRepository) Create(_ context.Context, query *domain.Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	query.CreatedAt = now
	query.UpdatedAt = now
	if query.Tags == nil {
		query.Tags = []domain.Tag{}
	}
	clone := cloneQuery(query)
	r.queries[query.ID] = &clone
	return nil
}

func (r *MemoryQueryRepository) FindByID(_ context.Context, id string) (*domain.Query, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	query, ok := r.queries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneQuery(query)
	return &clone, nil
}

func (r *MemoryQueryRepository) List(_ context.Context) ([]domain.Query, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Query, 0, len(r.queries))
	for _, query := range r.queries {
		result = append(result, cloneQuery(query))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryQueryRepository) UpdatePriority(_ context.Context, id string, priority domain.QueryPriority) (*domain.Query, error) {
	return r.mutate(id, func(q *domain.Query) {
		q.Priority = priority
	})
}

func (r *MemoryQueryRepository) UpdateStatus(_ context.Context, id string, status domain.QueryStatus) (*domain.Query, error) {
	return r.mutate(id, func(q *domain.Query) {
		q.Status = status
	})
}

func (r *MemoryQueryRepository) UpdateTags(_ context.Context, id string, tags []domain.Tag) (*domain.Query, error) {
	if tags == nil {
		tags = []domain.Tag{}
	}
	return r.mutate(id, func(q *domain.Query) {
		q.Tags = append([]domain.Tag{}, tags...)
	})
}

func (r *MemoryQueryRepository) Assign(_ context.Context, id string, userID, teamID *string) (*domain.Query, error) {
	return r.mutate(id, func(q *domain.Query) {
		q.AssigneeID = userID
		q.TeamID = teamID
	})
}

func (r *MemoryQueryRepository) UpdateInsights(_ context.Context, id string, insights *domain.ClassifierInsights) (*domain.Query, error) {
	return r.mutate(id, func(q *domain.Query) {
		if insights == nil {
			q.Insights = nil
			return
		}
		clone := *insights
		q.Insights = &clone
	})
}

func (r *MemoryQueryRepository) mutate(id string, apply func(*domain.Query)) (*domain.Query, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	query, ok := r.queries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	apply(query)
	query.UpdatedAt = time.Now()
	clone := cloneQuery(query)
	return &clone, nil
}

func cloneQuery(query *domain.Query) domain.Query {
	clone := *query
	clone.Tags = append([]domain.Tag{}, query.Tags...)
	if query.Insights != nil {
		insights := *query.Insights
		clone.Insights = &insights
	}
	return clone
}

// MemoryTeamRepository is an in-memory TeamRepository.
type MemoryTeamRepository struct {
	mu    sync.RWMutex
	teams []domain.Team
	users []domain.User
}

// NewMemoryTeamRepository constructs an empty store.
func NewMemoryTeamRepository() *MemoryTeamRepository {
	return &MemoryTeamRepository{}
}

func (r *MemoryTeamRepository) Create(_ context.Context, team *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.CreatedAt = now
	team.UpdatedAt = now
	r.teams = append(r.teams, *team)
	return nil
}

func (r *MemoryTeamRepository) FindAll(_ context.Context) ([]domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := append([]domain.Team{}, r.teams...)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (r *MemoryTeamRepository) FindByID(_ context.Context, id string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.teams {
		if r.teams[i].ID == id {
			team := r.teams[i]
			return &team, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryTeamRepository) FindByName(_ context.Context, name string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lower := strings.ToLower(name)
	for i := range r.teams {
		if strings.ToLower(r.teams[i].Name) == lower {
			team := r.teams[i]
			return &team, nil
		}
	}
	for i := range r.teams {
		if strings.Contains(strings.ToLower(r.teams[i].Name), lower) {
			team := r.teams[i]
			return &team, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryTeamRepository) FindAvailableUsers(_ context.Context, teamID string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.User
	for _, user := range r.users {
		if user.TeamID == nil || *user.TeamID != teamID {
			continue
		}
		if user.Role != domain.RoleAgent && user.Role != domain.RoleManager {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// AddUser registers a user in the store. Used by tests; the core never
// creates users.
func (r *MemoryTeamRepository) AddUser(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users = append(r.users, user)
}

// MemoryActivityRepository is an in-memory ActivityRepository.
type MemoryActivityRepository struct {
	mu         sync.RWMutex
	activities []domain.Activity
}

// NewMemoryActivityRepository constructs an empty store.
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{}
}

func (r *MemoryActivityRepository) Log(_ context.Context, queryID string, action domain.ActivityAction, metadata map[string]any, actorID *string) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	activity := domain.Activity{
		ID:        uuid.NewString(),
		QueryID:   queryID,
		ActorID:   actorID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	r.activities = append(r.activities, activity)
	return &activity, nil
}

func (r *MemoryActivityRepository) ListByQuery(_ context.Context, queryID string) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Activity
	for _, activity := range r.activities {
		if activity.QueryID == queryID {
			result = append(result, activity)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
