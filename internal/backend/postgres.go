package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AnswerQueuePayload is the JSON shape pushed to the persist-answers queue
// and consumed by the answer worker.
type AnswerQueuePayload struct {
	SessionID  string   `json:"session_id"`
	TestID     string   `json:"test_id"`
	QuestionID string   `json:"question_id"`
	OptionIDs  []string `json:"option_ids"`
}

// PostgresBackend is the production Backend: catalog and sessions in
// PostgreSQL, question payloads cached in Redis, answer writes buffered
// through a Redis queue drained by the answer worker.
type PostgresBackend struct {
	products  *repository.ProductRepository
	tests     *repository.TestRepository
	questions *repository.QuestionRepository
	sessions  *repository.SessionRepository
	rdb       *redis.Client
	log       zerolog.Logger
	minTests  int
	maxTests  int
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend creates a new PostgresBackend.
func NewPostgresBackend(
	products *repository.ProductRepository,
	tests *repository.TestRepository,
	questions *repository.QuestionRepository,
	sessions *repository.SessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
	cfg *config.Config,
) *PostgresBackend {
	return &PostgresBackend{
		products:  products,
		tests:     tests,
		questions: questions,
		sessions:  sessions,
		rdb:       rdb,
		log:       log.With().Str("component", "backend").Logger(),
		minTests:  cfg.MinTestsPerSession,
		maxTests:  cfg.MaxTestsPerSession,
	}
}

// StartSession validates the selection against the product, creates the
// session row and returns the real per-test time allocations.
func (b *PostgresBackend) StartSession(ctx context.Context, userID, productID uuid.UUID, testIDs []uuid.UUID) (*StartResult, error) {
	if len(testIDs) < b.minTests || len(testIDs) > b.maxTests {
		return nil, &ValidationError{Msg: fmt.Sprintf("select between %d and %d tests, got %d", b.minTests, b.maxTests, len(testIDs))}
	}
	seen := make(map[uuid.UUID]struct{}, len(testIDs))
	for _, id := range testIDs {
		if _, dup := seen[id]; dup {
			return nil, &ValidationError{Msg: fmt.Sprintf("test %s selected twice", id)}
		}
		seen[id] = struct{}{}
	}

	product, err := b.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "product", ID: productID}
		}
		return nil, &NetworkError{Op: "get product", Err: err}
	}
	if product.SubjectLimit > 0 && len(testIDs) > product.SubjectLimit {
		return nil, &ValidationError{Msg: fmt.Sprintf("product allows at most %d tests", product.SubjectLimit)}
	}

	available, err := b.tests.ListByProduct(ctx, productID)
	if err != nil {
		return nil, &NetworkError{Op: "list product tests", Err: err}
	}
	byID := make(map[uuid.UUID]*model.Test, len(available))
	for i := range available {
		byID[available[i].ID] = &available[i]
	}

	allocations := make([]TestAllocation, 0, len(testIDs))
	budget := 0
	for _, id := range testIDs {
		t, ok := byID[id]
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("test %s does not belong to product %s", id, productID)}
		}
		alloc := TestAllocation{TestID: id, TimeSeconds: t.TimeMinutes * 60}
		allocations = append(allocations, alloc)
		budget += alloc.TimeSeconds
	}

	session := &model.ExamSession{
		UserID:            userID,
		ProductID:         productID,
		TestSequence:      testIDs,
		TimeBudgetSeconds: budget,
	}
	if err := b.sessions.Create(ctx, session); err != nil {
		return nil, &NetworkError{Op: "create session", Err: err}
	}

	// Best-effort cache of start time and active session; PostgreSQL stays
	// the source of truth.
	pipe := b.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.SessionStartKey(session.ID.String()), session.StartedAt.Unix(), 0)
	pipe.Set(ctx, config.CacheKey.UserActiveSessionKey(userID.String()), session.ID.String(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		b.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to cache session start")
	}

	return &StartResult{SessionID: session.ID, Allocations: allocations}, nil
}

// LoadQuestions serves a test's ordered questions, Redis first. The cached
// JSON never contains correctness flags, so a cache hit is already safe to
// ship to clients.
func (b *PostgresBackend) LoadQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.TestQuestionsKey(testID.String())

	raw, err := b.rdb.Get(ctx, key).Result()
	if err == nil {
		var questions []model.Question
		if jsonErr := json.Unmarshal([]byte(raw), &questions); jsonErr == nil {
			return questions, nil
		}
		// Corrupt cache entry: fall through to PostgreSQL and rewrite it.
		b.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		b.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Redis read failed, falling back to PostgreSQL")
	}

	if _, err := b.tests.GetByID(ctx, testID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "test", ID: testID}
		}
		return nil, &NetworkError{Op: "get test", Err: err}
	}

	questions, err := b.questions.ListByTest(ctx, testID)
	if err != nil {
		return nil, &NetworkError{Op: "list questions", Err: err}
	}

	if payload, err := json.Marshal(questions); err == nil {
		if err := b.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
			b.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to cache questions")
		}
	}

	return questions, nil
}

// UpsertAnswer enqueues the latest selection for asynchronous persistence.
// The worker retries failed writes, so an enqueued answer is never lost
// silently.
func (b *PostgresBackend) UpsertAnswer(ctx context.Context, sessionID, testID, questionID uuid.UUID, optionIDs []uuid.UUID) error {
	session, err := b.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Resource: "session", ID: sessionID}
		}
		return &NetworkError{Op: "get session", Err: err}
	}
	if session.Status == model.SessionStatusCompleted {
		return &ConflictError{SessionID: sessionID}
	}

	opts := make([]string, len(optionIDs))
	for i, id := range optionIDs {
		opts[i] = id.String()
	}
	payload, err := json.Marshal(AnswerQueuePayload{
		SessionID:  sessionID.String(),
		TestID:     testID.String(),
		QuestionID: questionID.String(),
		OptionIDs:  opts,
	})
	if err != nil {
		return fmt.Errorf("marshal answer payload: %w", err)
	}

	if err := b.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return &NetworkError{Op: "enqueue answer", Err: err}
	}
	return nil
}

// CompleteSession finalizes the session row. A session that is already
// completed yields a plain ack, keeping the operation idempotent for the
// retry path.
func (b *PostgresBackend) CompleteSession(ctx context.Context, sessionID uuid.UUID, timeSpentMinutes int) error {
	rows, err := b.sessions.Complete(ctx, sessionID, timeSpentMinutes)
	if err != nil {
		return &NetworkError{Op: "complete session", Err: err}
	}
	if rows == 0 {
		session, err := b.sessions.GetByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Resource: "session", ID: sessionID}
			}
			return &NetworkError{Op: "get session", Err: err}
		}
		if session.Status != model.SessionStatusCompleted {
			return &NetworkError{Op: "complete session", Err: fmt.Errorf("session %s not updated", sessionID)}
		}
		b.log.Info().Str("session_id", sessionID.String()).Msg("Duplicate completion acknowledged")
	}

	session, err := b.sessions.GetByID(ctx, sessionID)
	if err == nil {
		if err := b.rdb.Del(ctx, config.CacheKey.UserActiveSessionKey(session.UserID.String())).Err(); err != nil {
			b.log.Warn().Err(err).Msg("Failed to clear active session key")
		}
	}
	return nil
}
