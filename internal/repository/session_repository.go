package repository

import (
	"context"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles exam session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, product_id, test_sequence, started_at, finished_at, time_budget_seconds, time_spent_minutes, status`

// Create inserts a new in-progress session with its fixed test sequence.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (user_id, product_id, test_sequence, time_budget_seconds, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, started_at`,
		s.UserID, s.ProductID, s.TestSequence, s.TimeBudgetSeconds, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ProductID, &s.TestSequence, &s.StartedAt, &s.FinishedAt, &s.TimeBudgetSeconds, &s.TimeSpentMinutes, &s.Status)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Complete marks a session as completed and records the time spent.
// Returns the number of rows updated: 0 means the session was already
// completed (or unknown), which callers treat as an idempotent ack.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, timeSpentMinutes int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, time_spent_minutes = $2, finished_at = NOW()
		 WHERE id = $3 AND status <> $1`,
		model.SessionStatusCompleted, timeSpentMinutes, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountCompletedByUser returns the user's total number of completed sessions.
func (r *SessionRepository) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE user_id = $1 AND status = $2`,
		userID, model.SessionStatusCompleted,
	).Scan(&count)
	return count, err
}

// ListCompletedByUser retrieves a page of the user's completed sessions,
// newest first.
func (r *SessionRepository) ListCompletedByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE user_id = $1 AND status = $2
		 ORDER BY finished_at DESC
		 LIMIT $3 OFFSET $4`, userID, model.SessionStatusCompleted, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProductID, &s.TestSequence, &s.StartedAt, &s.FinishedAt, &s.TimeBudgetSeconds, &s.TimeSpentMinutes, &s.Status); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
