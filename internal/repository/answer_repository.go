package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionAnswer is one persisted answer row: the latest option selection for
// a question within a session.
type SessionAnswer struct {
	SessionID  uuid.UUID   `json:"session_id"`
	TestID     uuid.UUID   `json:"test_id"`
	QuestionID uuid.UUID   `json:"question_id"`
	OptionIDs  []uuid.UUID `json:"option_ids"`
}

// AnswerRepository handles persisted session answers.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or fully replaces the answer for one question.
func (r *AnswerRepository) Upsert(ctx context.Context, a *SessionAnswer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_answers (session_id, test_id, question_id, option_ids)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET option_ids = EXCLUDED.option_ids, updated_at = NOW()`,
		a.SessionID, a.TestID, a.QuestionID, a.OptionIDs,
	)
	return err
}

// ListBySession retrieves all persisted answers of a session.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]SessionAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, test_id, question_id, option_ids
		 FROM session_answers WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []SessionAnswer
	for rows.Next() {
		var a SessionAnswer
		if err := rows.Scan(&a.SessionID, &a.TestID, &a.QuestionID, &a.OptionIDs); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
