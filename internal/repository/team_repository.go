package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// TeamRepository manages persistence for teams and the users attached to
// them. Users are read-only here; only teams are ever created.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	FindAll(ctx context.Context) ([]domain.Team, error)
	FindByID(ctx context.Context, id string) (*domain.Team, error)
	FindByName(ctx context.Context, name string) (*domain.Team, error)
	FindAvailableUsers(ctx context.Context, teamID string) ([]domain.User, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs a Postgres-backed repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const stmt = `
        INSERT INTO teams (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, stmt,
		team.Name,
		team.Description,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) FindAll(ctx context.Context) ([]domain.Team, error) {
	const stmt = `
        SELECT id, name, description, created_at, updated_at
        FROM teams ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}

func (r *teamRepository) FindByID(ctx context.Context, id string) (*domain.Team, error) {
	const stmt = `
        SELECT id, name, description, created_at, updated_at
        FROM teams WHERE id=$1`
	return r.fetchSingle(ctx, stmt, id)
}

// FindByName matches case-insensitively first, then by substring.
func (r *teamRepository) FindByName(ctx context.Context, name string) (*domain.Team, error) {
	const exact = `
        SELECT id, name, description, created_at, updated_at
        FROM teams WHERE LOWER(name)=LOWER($1)`
	team, err := r.fetchSingle(ctx, exact, name)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const substring = `
        SELECT id, name, description, created_at, updated_at
        FROM teams WHERE LOWER(name) LIKE '%' || LOWER($1) || '%'
        ORDER BY name ASC LIMIT 1`
	return r.fetchSingle(ctx, substring, name)
}

// FindAvailableUsers returns agents and managers of a team, oldest first.
func (r *teamRepository) FindAvailableUsers(ctx context.Context, teamID string) ([]domain.User, error) {
	const stmt = `
        SELECT id, name, email, role, team_id, created_at, updated_at
        FROM users WHERE team_id=$1 AND role IN ('agent','manager')
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, stmt, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.TeamID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *teamRepository) fetchSingle(ctx context.Context, stmt string, args ...any) (*domain.Team, error) {
	var team domain.Team
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}
