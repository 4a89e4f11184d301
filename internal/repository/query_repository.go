package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// QueryRepository encapsulates query persistence. Update methods return the
// updated query, or pgx.ErrNoRows when the id is unknown.
type QueryRepository interface {
	Create(ctx context.Context, query *domain.Query) error
	FindByID(ctx context.Context, id string) (*domain.Query, error)
	List(ctx context.Context) ([]domain.Query, error)
	UpdatePriority(ctx context.Context, id string, priority domain.QueryPriority) (*domain.Query, error)
	UpdateStatus(ctx context.Context, id string, status domain.QueryStatus) (*domain.Query, error)
	UpdateTags(ctx context.Context, id string, tags []domain.Tag) (*domain.Query, error)
	Assign(ctx context.Context, id string, userID, teamID *string) (*domain.Query, error)
	UpdateInsights(ctx context.Context, id string, insights *domain.ClassifierInsights) (*domain.Query, error)
}

type queryRepository struct {
	pool *pgxpool.Pool
}

// NewQueryRepository instantiates a Postgres-backed repository.
func NewQueryRepository(pool *pgxpool.Pool) QueryRepository {
	return &queryRepository{pool: pool}
}

const queryColumns = `id, channel, subject, message, customer_name, customer_email,
               tags, priority, status, team_id, assignee_id, insights, created_at, updated_at`

func (r *queryRepository) Create(ctx context.Context, query *domain.Query) error {
	const stmt = `
        INSERT INTO queries (channel, subject, message, customer_name, customer_email, tags, priority, status, team_id, assignee_id, insights)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	tags := query.Tags
	if tags == nil {
		tags = []domain.Tag{}
	}
	return r.pool.QueryRow(ctx, stmt,
		query.Channel,
		query.Subject,
		query.Message,
		query.CustomerName,
		query.CustomerEmail,
		tags,
		query.Priority,
		query.Status,
		query.TeamID,
		query.AssigneeID,
		query.Insights,
	).Scan(&query.ID, &query.CreatedAt, &query.UpdatedAt)
}

func (r *queryRepository) FindByID(ctx context.Context, id string) (*domain.Query, error) {
	return r.fetchSingle(ctx, `SELECT `+queryColumns+` FROM queries WHERE id=$1`, id)
}

func (r *queryRepository) List(ctx context.Context) ([]domain.Query, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+queryColumns+` FROM queries ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueries(rows)
}

func (r *queryRepository) UpdatePriority(ctx context.Context, id string, priority domain.QueryPriority) (*domain.Query, error) {
	const stmt = `UPDATE queries SET priority=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + queryColumns
	return r.fetchSingle(ctx, stmt, priority, id)
}

func (r *queryRepository) UpdateStatus(ctx context.Context, id string, status domain.QueryStatus) (*domain.Query, error) {
	const stmt = `UPDATE queries SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + queryColumns
	return r.fetchSingle(ctx, stmt, status, id)
}

func (r *queryRepository) UpdateTags(ctx context.Context, id string, tags []domain.Tag) (*domain.Query, error) {
	if tags == nil {
		tags = []domain.Tag{}
	}
	const stmt = `UPDATE queries SET tags=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + queryColumns
	return r.fetchSingle(ctx, stmt, tags, id)
}

func (r *queryRepository) Assign(ctx context.Context, id string, userID, teamID *string) (*domain.Query, error) {
	const stmt = `UPDATE queries SET assignee_id=$1, team_id=$2, updated_at=NOW() WHERE id=$3 RETURNING ` + queryColumns
	return r.fetchSingle(ctx, stmt, userID, teamID, id)
}

func (r *queryRepository) UpdateInsights(ctx context.Context, id string, insights *domain.ClassifierInsights) (*domain.Query, error) {
	const stmt = `UPDATE queries SET insights=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + queryColumns
	return r.fetchSingle(ctx, stmt, insights, id)
}

func (r *queryRepository) fetchSingle(ctx context.Context, stmt string, args ...any) (*domain.Query, error) {
	var query domain.Query
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(
		&query.ID,
		&query.Channel,
		&query.Subject,
		&query.Message,
		&query.CustomerName,
		&query.CustomerEmail,
		&query.Tags,
		&query.Priority,
		&query.Status,
		&query.TeamID,
		&query.AssigneeID,
		&query.Insights,
		&query.CreatedAt,
		&query.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &query, nil
}

func scanQueries(rows pgx.Rows) ([]domain.Query, error) {
	var result []domain.Query
	for rows.Next() {
		var query domain.Query
		if err := rows.Scan(
			&query.ID,
			&query.Channel,
			&query.Subject,
			&query.Message,
			&query.CustomerName,
			&query.CustomerEmail,
			&query.Tags,
			&query.Priority,
			&query.Status,
			&query.TeamID,
			&query.AssigneeID,
			&query.Insights,
			&query.CreatedAt,
			&query.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, query)
	}
	return result, rows.Err()
}
