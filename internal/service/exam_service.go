package service

import (
	"context"

	"github.com/examina/examina-backend/internal/engine"
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// ExamService is the thin seam between the HTTP layer and the per-user
// session controllers. All exam semantics live in the engine; this layer
// only routes intents to the right controller.
type ExamService struct {
	registry *engine.Registry
}

// NewExamService creates a new ExamService.
func NewExamService(registry *engine.Registry) *ExamService {
	return &ExamService{registry: registry}
}

// Start begins an exam session for the user. A controller left in a terminal
// state by a previous exam is reset first so the user can start fresh.
func (s *ExamService) Start(ctx context.Context, userID uuid.UUID, req *model.StartSessionRequest) (*engine.StateSnapshot, error) {
	controller := s.registry.For(userID)
	switch controller.Status() {
	case model.SessionStatusCompleted:
		controller.Reset()
	}

	if err := controller.Start(ctx, userID, req.ProductID, req.TestIDs); err != nil {
		return nil, err
	}
	return controller.Snapshot(ctx)
}

// State returns the user's current session snapshot.
func (s *ExamService) State(ctx context.Context, userID uuid.UUID) (*engine.StateSnapshot, error) {
	return s.registry.For(userID).Snapshot(ctx)
}

// Answer records the selection for the user's current question.
func (s *ExamService) Answer(ctx context.Context, userID uuid.UUID, req *model.SubmitAnswerRequest) (*engine.StateSnapshot, error) {
	controller := s.registry.For(userID)
	if err := controller.SubmitAnswer(ctx, req.OptionIDs); err != nil {
		return nil, err
	}
	return controller.Snapshot(ctx)
}

// Next moves to the next question; past the last question it finalizes.
func (s *ExamService) Next(ctx context.Context, userID uuid.UUID) (*engine.StateSnapshot, error) {
	controller := s.registry.For(userID)
	if err := controller.Advance(ctx); err != nil {
		return nil, err
	}
	return controller.Snapshot(ctx)
}

// Previous moves to the previous question.
func (s *ExamService) Previous(ctx context.Context, userID uuid.UUID) (*engine.StateSnapshot, error) {
	controller := s.registry.For(userID)
	if err := controller.Retreat(ctx); err != nil {
		return nil, err
	}
	return controller.Snapshot(ctx)
}

// Finish submits the exam. Safe to call again after a failed attempt.
func (s *ExamService) Finish(ctx context.Context, userID uuid.UUID) (*engine.StateSnapshot, error) {
	controller := s.registry.For(userID)
	if err := controller.Finalize(ctx); err != nil {
		// The snapshot still matters: the caller shows the Failed state
		// with its retry affordance.
		if snap, snapErr := controller.Snapshot(ctx); snapErr == nil {
			return snap, err
		}
		return nil, err
	}
	return controller.Snapshot(ctx)
}

// Abandon discards the user's in-memory session without submitting it. The
// engine holds no resume state, so the walk-away is final on this node.
func (s *ExamService) Abandon(ctx context.Context, userID uuid.UUID) error {
	controller := s.registry.For(userID)
	if controller.Status() == model.SessionStatusNotStarted {
		return engine.ErrNotStarted
	}
	s.registry.Release(userID)
	return nil
}

// Controller exposes the user's controller for the WebSocket stream.
func (s *ExamService) Controller(userID uuid.UUID) *engine.Controller {
	return s.registry.For(userID)
}
