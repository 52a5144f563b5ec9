package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrSessionNotFound is returned for lookups of unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionResult is a completed session with its chosen tests and persisted
// answers.
type SessionResult struct {
	Session model.ExamSession          `json:"session"`
	Tests   []model.Test               `json:"tests"`
	Answers []repository.SessionAnswer `json:"answers"`
}

// ResultService lists a user's completed exam sessions. Scoring itself is
// out of scope here; the persisted answer rows are what the grading side
// consumes.
type ResultService struct {
	sessions *repository.SessionRepository
	answers  *repository.AnswerRepository
	tests    *repository.TestRepository
}

// NewResultService creates a new ResultService.
func NewResultService(sessions *repository.SessionRepository, answers *repository.AnswerRepository, tests *repository.TestRepository) *ResultService {
	return &ResultService{sessions: sessions, answers: answers, tests: tests}
}

// ListCompleted returns one page of the user's completed sessions, most
// recent first, along with the total count for pagination.
func (s *ResultService) ListCompleted(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.ExamSession, int, error) {
	total, err := s.sessions.CountCompletedByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count completed sessions: %w", err)
	}

	sessions, err := s.sessions.ListCompletedByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list completed sessions: %w", err)
	}
	return sessions, total, nil
}

// GetResult returns one of the user's sessions with its tests and answers.
func (s *ResultService) GetResult(ctx context.Context, userID, sessionID uuid.UUID) (*SessionResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}

	tests, err := s.tests.ListByIDs(ctx, session.TestSequence)
	if err != nil {
		return nil, fmt.Errorf("list session tests: %w", err)
	}
	// ListByIDs returns rows in arbitrary order; restore the session's
	// sequence order.
	byID := make(map[uuid.UUID]model.Test, len(tests))
	for _, t := range tests {
		byID[t.ID] = t
	}
	ordered := make([]model.Test, 0, len(session.TestSequence))
	for _, id := range session.TestSequence {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}

	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session answers: %w", err)
	}

	return &SessionResult{Session: *session, Tests: ordered, Answers: answers}, nil
}
