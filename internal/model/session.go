package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusFinalizing SessionStatus = "FINALIZING"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusFailed     SessionStatus = "FAILED"
)

// ExamSession represents one user's attempt at a selected bundle of tests
// under a shared timer. TestSequence is fixed at start; its insertion order
// is the exam order.
type ExamSession struct {
	ID                uuid.UUID     `json:"id"`
	UserID            uuid.UUID     `json:"user_id"`
	ProductID         uuid.UUID     `json:"product_id"`
	TestSequence      []uuid.UUID   `json:"test_sequence"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        *time.Time    `json:"finished_at,omitempty"`
	TimeBudgetSeconds int           `json:"time_budget_seconds"`
	TimeSpentMinutes  *int          `json:"time_spent_minutes,omitempty"`
	Status            SessionStatus `json:"status"`
}

// Position is the current (test, question) location within the flattened
// session sequence. Both indexes are zero-based and only meaningful while
// the session is in progress.
type Position struct {
	TestIndex     int `json:"test_index"`
	QuestionIndex int `json:"question_index"`
}

// StartSessionRequest is the payload for starting an exam session.
type StartSessionRequest struct {
	ProductID uuid.UUID   `json:"product_id" binding:"required"`
	TestIDs   []uuid.UUID `json:"test_ids" binding:"required,min=1"`
}

// SubmitAnswerRequest is the payload for answering the current question.
// An empty list clears the selection.
type SubmitAnswerRequest struct {
	OptionIDs []uuid.UUID `json:"option_ids"`
}
