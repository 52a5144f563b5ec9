package model

import (
	"time"

	"github.com/google/uuid"
)

// Test represents a named, ordered set of questions with its own time and
// score metadata. QuestionCount is informational for catalog display; session
// navigation always derives counts from the loaded question sets.
type Test struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	TimeMinutes   int       `json:"time_minutes"`
	ScorePoints   int       `json:"score_points"`
	IsRequired    bool      `json:"is_required"`
	CreatedAt     time.Time `json:"created_at"`
}
