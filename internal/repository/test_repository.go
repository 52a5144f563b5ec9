package repository

import (
	"context"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository handles test metadata access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, product_id, title, question_count, time_minutes, score_points, is_required, created_at`

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.ProductID, &t.Title, &t.QuestionCount, &t.TimeMinutes, &t.ScorePoints, &t.IsRequired, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListByProduct retrieves all tests belonging to a product, in catalog order.
func (r *TestRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE product_id = $1
		 ORDER BY created_at`, productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTests(rows)
}

// ListByIDs retrieves the given tests. The result order is unspecified;
// callers needing sequence order must reorder by ID themselves.
func (r *TestRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTests(rows)
}

// Create inserts a new test. Used by seeding.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (product_id, title, question_count, time_minutes, score_points, is_required)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		t.ProductID, t.Title, t.QuestionCount, t.TimeMinutes, t.ScorePoints, t.IsRequired,
	).Scan(&t.ID, &t.CreatedAt)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTests(rows pgxRows) ([]model.Test, error) {
	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.ProductID, &t.Title, &t.QuestionCount, &t.TimeMinutes, &t.ScorePoints, &t.IsRequired, &t.CreatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
