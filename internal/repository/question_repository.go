package repository

import (
	"context"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question and option data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions of a test, ordered by order_num, with
// their options attached in option order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, text, img_path, order_num
		 FROM questions WHERE test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &q.ImgPath, &q.OrderNum); err != nil {
			return nil, err
		}
		byID[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.text, o.img_path, o.is_correct
		 FROM options o
		 JOIN questions q ON o.question_id = q.id
		 WHERE q.test_id = $1
		 ORDER BY o.order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var o model.Option
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.ImgPath, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := byID[o.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}

// Create inserts a new question with its options. Used by seeding.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	if err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, text, img_path, order_num)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		q.TestID, q.Text, q.ImgPath, q.OrderNum,
	).Scan(&q.ID); err != nil {
		return err
	}

	for i := range q.Options {
		o := &q.Options[i]
		o.QuestionID = q.ID
		if err := r.pool.QueryRow(ctx,
			`INSERT INTO options (question_id, text, img_path, is_correct, order_num)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			o.QuestionID, o.Text, o.ImgPath, o.IsCorrect, i,
		).Scan(&o.ID); err != nil {
			return err
		}
	}
	return nil
}
