package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Lifecycle errors surfaced to the presentation layer.
var (
	ErrAlreadyStarted = errors.New("exam session already started")
	ErrNotStarted     = errors.New("exam session has not been started")
	ErrNotInProgress  = errors.New("exam session is not in progress")
)

// answerSyncTimeout bounds a single asynchronous answer upsert.
const answerSyncTimeout = 10 * time.Second

// Controller owns one exam session end to end: lifecycle state, the question
// cache, the answer ledger, the navigation cursor and the countdown timer.
// It is the sole component issuing session-level backend mutations. Every
// lifecycle transition is a check-and-set on the status field under the
// controller lock, which keeps the manual-finish/timer-expiry race down to
// exactly one completion call.
type Controller struct {
	mu       sync.Mutex
	backend  backend.Backend
	log      zerolog.Logger
	starting bool

	cache  *QuestionCache
	ledger *AnswerLedger
	cursor *NavigationCursor
	timer  *CountdownTimer

	session model.ExamSession
	// pending holds answers recorded locally but not yet acknowledged by the
	// backend. They are re-sent on every navigation event and flushed before
	// completion, so an answer is never silently lost.
	pending map[answerKey]struct{}
	notices []string

	// tickInterval is time.Second in production; tests shrink it.
	tickInterval time.Duration
}

// NewController creates an idle controller bound to a backend.
func NewController(b backend.Backend, log zerolog.Logger) *Controller {
	return &Controller{
		backend:      b,
		log:          log.With().Str("component", "session_controller").Logger(),
		cache:        NewQuestionCache(b),
		ledger:       NewAnswerLedger(),
		session:      model.ExamSession{Status: model.SessionStatusNotStarted},
		pending:      make(map[answerKey]struct{}),
		tickInterval: time.Second,
	}
}

// StateSnapshot is the read-only view handed to the presentation layer.
type StateSnapshot struct {
	Session          model.ExamSession   `json:"session"`
	Position         model.Position      `json:"position"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	QuestionNumber   int                 `json:"question_number"`
	TotalQuestions   int                 `json:"total_questions"`
	AnsweredCount    int                 `json:"answered_count"`
	Question         *model.QuestionView `json:"question,omitempty"`
	Notices          []string            `json:"notices,omitempty"`
}

// Start begins a session: backend start call, time budget computed from the
// returned per-test allocations, cursor at (0,0), countdown running. On
// backend failure the controller stays NotStarted and the error is returned.
func (c *Controller) Start(ctx context.Context, userID, productID uuid.UUID, testIDs []uuid.UUID) error {
	c.mu.Lock()
	if c.session.Status != model.SessionStatusNotStarted || c.starting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.starting = true
	c.mu.Unlock()

	result, err := c.backend.StartSession(ctx, userID, productID, testIDs)
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
		return err
	}

	budget := 0
	for _, alloc := range result.Allocations {
		budget += alloc.TimeSeconds
	}

	sequence := make([]uuid.UUID, len(testIDs))
	copy(sequence, testIDs)

	c.mu.Lock()
	c.session = model.ExamSession{
		ID:                result.SessionID,
		UserID:            userID,
		ProductID:         productID,
		TestSequence:      sequence,
		StartedAt:         time.Now(),
		TimeBudgetSeconds: budget,
		Status:            model.SessionStatusInProgress,
	}
	c.cursor = NewNavigationCursor(sequence, c.cache)
	c.timer = startCountdown(budget, c.tickInterval, c.onTimerExpired)
	c.starting = false
	c.mu.Unlock()

	c.log.Info().
		Str("session_id", result.SessionID.String()).
		Int("tests", len(sequence)).
		Int("budget_seconds", budget).
		Msg("Session started")

	// Warm the first test so the opening question renders without a fetch.
	// A failure here is not fatal for the start itself: the next read
	// retries and surfaces the fetch error with a retry affordance.
	if _, err := c.cache.Load(ctx, sequence[0]); err != nil {
		c.log.Warn().Err(err).Msg("First question set not preloaded")
	}

	return nil
}

// Finalize ends the session. Allowed from InProgress (manual finish, timer
// expiry, sequence exhausted) and from Failed (retry). The status flip to
// Finalizing happens atomically with the check, so concurrent finalize paths
// collapse to exactly one backend completion call; the losers are no-ops.
func (c *Controller) Finalize(ctx context.Context) error {
	c.mu.Lock()
	switch c.session.Status {
	case model.SessionStatusInProgress, model.SessionStatusFailed:
		// This caller wins the gate.
	case model.SessionStatusFinalizing, model.SessionStatusCompleted:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.session.Status = model.SessionStatusFinalizing
	if c.timer != nil {
		c.timer.Cancel()
	}
	sessionID := c.session.ID
	elapsed := time.Since(c.session.StartedAt)
	pending := make([]answerKey, 0, len(c.pending))
	for key := range c.pending {
		pending = append(pending, key)
	}
	c.mu.Unlock()

	// Flush unacknowledged answers first so the backend holds the final
	// ledger state before the session closes.
	for _, key := range pending {
		opts := c.ledger.Lookup(key.testID, key.questionID)
		if err := c.backend.UpsertAnswer(ctx, sessionID, key.testID, key.questionID, opts); err != nil {
			c.log.Warn().Err(err).
				Str("question_id", key.questionID.String()).
				Msg("Pending answer flush failed")
			continue
		}
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	}

	minutes := int(elapsed.Minutes())
	err := c.backend.CompleteSession(ctx, sessionID, minutes)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.session.Status = model.SessionStatusFailed
		c.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Finalize failed")
		return err
	}

	now := time.Now()
	c.session.FinishedAt = &now
	c.session.TimeSpentMinutes = &minutes
	c.session.Status = model.SessionStatusCompleted
	c.log.Info().
		Str("session_id", sessionID.String()).
		Int("time_spent_minutes", minutes).
		Msg("Session completed")
	return nil
}

// Reset drops all volatile session state, returning the controller to
// NotStarted. Ledger entries are cleared only here.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
	c.session = model.ExamSession{Status: model.SessionStatusNotStarted}
	c.cursor = nil
	c.cache = NewQuestionCache(c.backend)
	c.ledger.Reset()
	c.pending = make(map[answerKey]struct{})
	c.notices = nil
}

// onTimerExpired is the countdown's one-shot callback.
func (c *Controller) onTimerExpired() {
	c.mu.Lock()
	c.notices = append(c.notices, "Time has expired. Your exam is being submitted automatically.")
	c.mu.Unlock()

	if err := c.Finalize(context.Background()); err != nil {
		c.log.Error().Err(err).Msg("Automatic submission failed")
	}
}

// SubmitAnswer records the selection for the current question. The ledger
// write is synchronous so the UI reflects the choice immediately; the backend
// upsert runs asynchronously and its failure neither reverts the local value
// nor blocks navigation.
func (c *Controller) SubmitAnswer(ctx context.Context, optionIDs []uuid.UUID) error {
	c.mu.Lock()
	if c.session.Status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	testID := c.cursor.CurrentTest()
	c.mu.Unlock()

	set, err := c.cache.Load(ctx, testID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.session.Status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	pos := c.cursor.Position()
	question := &set.Questions[pos.QuestionIndex]
	c.ledger.Record(testID, question.ID, optionIDs)
	key := answerKey{testID: testID, questionID: question.ID}
	c.pending[key] = struct{}{}
	sessionID := c.session.ID
	c.mu.Unlock()

	go c.syncAnswer(sessionID, key)
	return nil
}

// Advance moves to the next question. Running off the end of the last test is
// the implicit finalize trigger. Pending answer syncs are re-sent on every
// navigation event.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	c.resyncPendingLocked()
	err := c.cursor.Next(ctx)
	c.mu.Unlock()

	if errors.Is(err, ErrSequenceExhausted) {
		return c.Finalize(ctx)
	}
	return err
}

// Retreat moves to the previous question; a no-op on the very first one.
func (c *Controller) Retreat(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Status != model.SessionStatusInProgress {
		return ErrNotInProgress
	}
	c.resyncPendingLocked()
	return c.cursor.Previous(ctx)
}

// resyncPendingLocked re-issues the backend upsert for every unacknowledged
// answer. Caller holds c.mu.
func (c *Controller) resyncPendingLocked() {
	sessionID := c.session.ID
	for key := range c.pending {
		go c.syncAnswer(sessionID, key)
	}
}

// syncAnswer pushes one answer to the backend, always reading the ledger at
// call time so an older in-flight write can never clobber a newer local
// value on our side of the wire.
func (c *Controller) syncAnswer(sessionID uuid.UUID, key answerKey) {
	ctx, cancel := context.WithTimeout(context.Background(), answerSyncTimeout)
	defer cancel()

	opts := c.ledger.Lookup(key.testID, key.questionID)
	err := c.backend.UpsertAnswer(ctx, sessionID, key.testID, key.questionID, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.pending, key)
		return
	}

	var conflict *backend.ConflictError
	if errors.As(err, &conflict) {
		// Session closed elsewhere: the write is discarded, never retried.
		delete(c.pending, key)
		c.log.Warn().Err(err).Str("question_id", key.questionID.String()).Msg("Answer discarded, session completed")
		return
	}

	c.log.Warn().Err(err).
		Str("question_id", key.questionID.String()).
		Msg("Answer sync failed, kept for retry")
	c.notices = append(c.notices, "Saving an answer failed. It is kept locally and will be retried.")
}

// Status returns the current lifecycle state.
func (c *Controller) Status() model.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status
}

// Session returns a copy of the session record.
func (c *Controller) Session() model.ExamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionCopyLocked()
}

// Position returns the cursor location; zero value before start.
func (c *Controller) Position() model.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor == nil {
		return model.Position{}
	}
	return c.cursor.Position()
}

// Remaining returns the seconds left on the shared budget.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return 0
	}
	return c.timer.Remaining()
}

// CurrentQuestion returns the presentation view of the question under the
// cursor, with previously chosen options prefilled from the ledger.
func (c *Controller) CurrentQuestion(ctx context.Context) (*model.QuestionView, error) {
	c.mu.Lock()
	if c.session.Status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return nil, ErrNotInProgress
	}
	testID := c.cursor.CurrentTest()
	pos := c.cursor.Position()
	c.mu.Unlock()

	set, err := c.cache.Load(ctx, testID)
	if err != nil {
		return nil, err
	}
	if pos.QuestionIndex >= set.Len() {
		return nil, fmt.Errorf("question index %d out of range for test %s", pos.QuestionIndex, testID)
	}

	question := &set.Questions[pos.QuestionIndex]
	return model.ViewFor(question, c.ledger.Lookup(testID, question.ID)), nil
}

// DrainNotices returns and clears the accumulated user-visible notices.
func (c *Controller) DrainNotices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	notices := c.notices
	c.notices = nil
	return notices
}

// Snapshot assembles the full read-only state for the presentation layer.
// Outside InProgress only the session record and notices are populated.
func (c *Controller) Snapshot(ctx context.Context) (*StateSnapshot, error) {
	c.mu.Lock()
	snap := &StateSnapshot{
		Session:       c.sessionCopyLocked(),
		AnsweredCount: c.ledger.Len(),
	}
	if c.timer != nil {
		snap.RemainingSeconds = c.timer.Remaining()
	}
	notices := c.notices
	c.notices = nil
	snap.Notices = notices

	if c.session.Status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return snap, nil
	}
	snap.Position = c.cursor.Position()
	cursor := c.cursor
	c.mu.Unlock()

	number, err := cursor.QuestionNumberAt(ctx, snap.Position)
	if err != nil {
		return nil, err
	}
	total, err := cursor.TotalQuestions(ctx)
	if err != nil {
		return nil, err
	}
	snap.QuestionNumber = number
	snap.TotalQuestions = total

	question, err := c.CurrentQuestion(ctx)
	if err != nil {
		return nil, err
	}
	snap.Question = question
	return snap, nil
}

// sessionCopyLocked returns the session with its slice deep-copied so callers
// cannot mutate the sequence. Caller holds c.mu.
func (c *Controller) sessionCopyLocked() model.ExamSession {
	copySession := c.session
	copySession.TestSequence = append([]uuid.UUID(nil), c.session.TestSequence...)
	return copySession
}
