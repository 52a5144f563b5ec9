package handler

import (
	"errors"
	"net/http"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/engine"
	"github.com/examina/examina-backend/internal/middleware"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/response"
	"github.com/examina/examina-backend/internal/service"
	"github.com/examina/examina-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// ExamHandler exposes the exam-taking surface: start, state, answer,
// navigation and finish.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// failExamError maps engine and backend failures onto API error codes.
func failExamError(c *gin.Context, err error) {
	var validationErr *backend.ValidationError
	var notFoundErr *backend.NotFoundError
	var fetchErr *backend.FetchError
	var conflictErr *backend.ConflictError
	var networkErr *backend.NetworkError

	switch {
	case errors.As(err, &validationErr):
		response.Fail(c, http.StatusBadRequest, response.ErrTestSelection)
	case errors.As(err, &notFoundErr):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.As(err, &fetchErr):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrQuestionsMissing)
	case errors.As(err, &conflictErr):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.As(err, &networkErr):
		response.Fail(c, http.StatusBadGateway, response.ErrBackendUnreachable)
	case errors.Is(err, engine.ErrAlreadyStarted):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, engine.ErrNotStarted), errors.Is(err, engine.ErrNotInProgress):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveSession)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Start godoc
// POST /api/v1/exam/start
// Starts an exam session over the selected tests.
func (h *ExamHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.examService.Start(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, snap)
}

// State godoc
// GET /api/v1/exam/state
// Returns the current session snapshot.
func (h *ExamHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snap, err := h.examService.State(c.Request.Context(), claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// Answer godoc
// POST /api/v1/exam/answer
// Records the option selection for the current question.
func (h *ExamHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.examService.Answer(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// Next godoc
// POST /api/v1/exam/next
// Advances to the next question; past the last question it submits the exam.
func (h *ExamHandler) Next(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snap, err := h.examService.Next(c.Request.Context(), claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// Previous godoc
// POST /api/v1/exam/previous
// Moves back one question; a no-op on the very first one.
func (h *ExamHandler) Previous(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snap, err := h.examService.Previous(c.Request.Context(), claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// Abandon godoc
// POST /api/v1/exam/abandon
// Discards the in-progress session without submitting it.
func (h *ExamHandler) Abandon(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.examService.Abandon(c.Request.Context(), claims.UserID); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

// Finish godoc
// POST /api/v1/exam/finish
// Submits the exam. Retryable after a failed submission.
func (h *ExamHandler) Finish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snap, err := h.examService.Finish(c.Request.Context(), claims.UserID)
	if err != nil {
		// A failed finalize keeps the answers; the client retries.
		if snap != nil {
			response.Fail(c, http.StatusBadGateway, response.ErrFinalizeFailed)
			return
		}
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}
