// Package backend defines the session backend consumed by the exam engine:
// starting a session, fetching question sets, upserting answers and
// finalizing. The engine depends only on the Backend interface and the typed
// failures below; the production implementation lives in postgres.go.
package backend

import (
	"context"
	"fmt"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// TestAllocation is one test's share of the session time budget, in seconds.
type TestAllocation struct {
	TestID      uuid.UUID `json:"test_id"`
	TimeSeconds int       `json:"time_seconds"`
}

// StartResult is returned by StartSession: the assigned session ID plus the
// real per-test time allocations the total budget is computed from.
type StartResult struct {
	SessionID   uuid.UUID        `json:"session_id"`
	Allocations []TestAllocation `json:"allocations"`
}

// Backend exposes the session-level operations of the authoritative store.
type Backend interface {
	// StartSession creates a new exam session. Fails with *ValidationError if
	// the test selection is out of bounds or not a subset of the product.
	StartSession(ctx context.Context, userID, productID uuid.UUID, testIDs []uuid.UUID) (*StartResult, error)

	// LoadQuestions returns the ordered question list of one test. Fails with
	// *NotFoundError if the test is unknown.
	LoadQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error)

	// UpsertAnswer records the latest option selection for one question,
	// replacing any prior value. Fails with *ConflictError if the session is
	// already completed.
	UpsertAnswer(ctx context.Context, sessionID, testID, questionID uuid.UUID, optionIDs []uuid.UUID) error

	// CompleteSession finalizes the session. The backend treats repeated calls
	// as an acknowledgement, but callers must still avoid issuing them.
	CompleteSession(ctx context.Context, sessionID uuid.UUID, timeSpentMinutes int) error
}

// ─── Typed failures ─────────────────────────────────────────────────────────

// ValidationError reports rejected input, e.g. a test selection outside the
// allowed count. Recoverable: the user corrects the selection and retries.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports an unknown resource.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// FetchError reports that a test's question set could not be obtained.
// Fatal for that test: navigation depends on its question count.
type FetchError struct {
	TestID uuid.UUID
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch questions for test %s: %v", e.TestID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConflictError reports a write against an already completed session.
// Such writes are discarded and logged, never retried.
type ConflictError struct {
	SessionID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session %s is already completed", e.SessionID)
}

// NetworkError reports a transient transport or store failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
