package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// ActivityRepository stores append-only audit entries per query.
type ActivityRepository interface {
	Log(ctx context.Context, queryID string, action domain.ActivityAction, metadata map[string]any, actorID *string) (*domain.Activity, error)
	ListByQuery(ctx context.Context, queryID string) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds a Postgres-backed repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Log(ctx context.Context, queryID string, action domain.ActivityAction, metadata map[string]any, actorID *string) (*domain.Activity, error) {
	const stmt = `
        INSERT INTO activities (query_id, actor_id, action, metadata)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	activity := domain.Activity{
		QueryID:  queryID,
		ActorID:  actorID,
		Action:   action,
		Metadata: metadata,
	}
	if err := r.pool.QueryRow(ctx, stmt,
		queryID,
		actorID,
		action,
		metadata,
	).Scan(&activity.ID, &activity.CreatedAt); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) ListByQuery(ctx context.Context, queryID string) ([]domain.Activity, error) {
	const stmt = `
        SELECT id, query_id, actor_id, action, metadata, created_at
        FROM activities WHERE query_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, stmt, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.QueryID,
			&activity.ActorID,
			&activity.Action,
			&activity.Metadata,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
