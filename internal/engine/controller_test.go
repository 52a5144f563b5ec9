package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(fake *fakeBackend) *Controller {
	return NewController(fake, zerolog.Nop())
}

func startSession(t *testing.T, c *Controller, testIDs []uuid.UUID) {
	t.Helper()
	require.NoError(t, c.Start(context.Background(), uuid.New(), uuid.New(), testIDs))
	t.Cleanup(c.Reset)
}

func TestStartComputesBudgetFromAllocations(t *testing.T) {
	fake, testIDs := newFakeBackend(10, 15, 12)
	c := newTestController(fake)
	startSession(t, c, testIDs)

	session := c.Session()
	assert.Equal(t, model.SessionStatusInProgress, session.Status)
	assert.Equal(t, fake.sessionID, session.ID)
	assert.Equal(t, 270, session.TimeBudgetSeconds)
	assert.Equal(t, testIDs, session.TestSequence)

	// The first test is warmed immediately; the rest stay cold.
	assert.Equal(t, 1, fake.loadCount(testIDs[0]))
	assert.Zero(t, fake.loadCount(testIDs[1]))
}

func TestStartFailureKeepsNotStarted(t *testing.T) {
	fake, testIDs := newFakeBackend(5)
	fake.startErr = &backend.ValidationError{Msg: "select between 3 and 6 tests"}
	c := newTestController(fake)

	err := c.Start(context.Background(), uuid.New(), uuid.New(), testIDs)
	var validationErr *backend.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, model.SessionStatusNotStarted, c.Status())

	// The user fixes the selection and retries.
	fake.startErr = nil
	startSession(t, c, testIDs)
	assert.Equal(t, model.SessionStatusInProgress, c.Status())
}

func TestStartTwiceRejected(t *testing.T) {
	fake, testIDs := newFakeBackend(5)
	c := newTestController(fake)
	startSession(t, c, testIDs)

	err := c.Start(context.Background(), uuid.New(), uuid.New(), testIDs)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestSubmitAnswerSyncsToBackend(t *testing.T) {
	fake, testIDs := newFakeBackend(5)
	c := newTestController(fake)
	startSession(t, c, testIDs)

	opts := []uuid.UUID{uuid.New()}
	require.NoError(t, c.SubmitAnswer(context.Background(), opts))

	require.Eventually(t, func() bool {
		return fake.upsertCount() == 1
	}, time.Second, 5*time.Millisecond)

	call, ok := fake.lastUpsert()
	require.True(t, ok)
	assert.Equal(t, fake.sessionID, call.sessionID)
	assert.Equal(t, testIDs[0], call.testID)
	assert.Equal(t, opts, call.optionIDs)
}

func TestSubmitAnswerPrefillsCurrentQuestion(t *testing.T) {
	fake, testIDs := newFakeBackend(5)
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	view, err := c.CurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.SelectedOptionIDs)

	selected := []uuid.UUID{view.Options[1].ID}
	require.NoError(t, c.SubmitAnswer(ctx, selected))

	view, err = c.CurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, selected, view.SelectedOptionIDs)

	// Navigate away and back; the selection must survive.
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Retreat(ctx))
	view, err = c.CurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, selected, view.SelectedOptionIDs)
}

func TestAnswerSyncFailureKeepsLocalValueAndRetries(t *testing.T) {
	fake, testIDs := newFakeBackend(5)
	fake.setUpsertErr(&backend.NetworkError{Op: "queue answer", Err: errors.New("broken pipe")})
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	view, err := c.CurrentQuestion(ctx)
	require.NoError(t, err)
	selected := []uuid.UUID{view.Options[0].ID}
	require.NoError(t, c.SubmitAnswer(ctx, selected))

	// The failed sync surfaces as a notice, never as a rollback.
	require.Eventually(t, func() bool {
		snap, snapErr := c.Snapshot(ctx)
		require.NoError(t, snapErr)
		return len(snap.Notices) > 0
	}, time.Second, 5*time.Millisecond)

	view, err = c.CurrentQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, selected, view.SelectedOptionIDs)
	assert.Zero(t, fake.upsertCount())

	// Backend recovers; the next navigation re-sends the pending answer.
	fake.setUpsertErr(nil)
	require.NoError(t, c.Advance(ctx))
	require.Eventually(t, func() bool {
		return fake.upsertCount() == 1
	}, time.Second, 5*time.Millisecond)

	call, _ := fake.lastUpsert()
	assert.Equal(t, selected, call.optionIDs)
}

func TestAnswerSyncFailureDoesNotBlockNavigation(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	fake.setUpsertErr(&backend.NetworkError{Op: "queue answer", Err: errors.New("timeout")})
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	require.NoError(t, c.SubmitAnswer(ctx, []uuid.UUID{uuid.New()}))
	require.NoError(t, c.Advance(ctx))
	assert.Equal(t, model.Position{TestIndex: 0, QuestionIndex: 1}, c.Position())
}

func TestConflictDiscardsAnswerWithoutRetry(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	fake.setUpsertErr(&backend.ConflictError{SessionID: fake.sessionID})
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	require.NoError(t, c.SubmitAnswer(ctx, []uuid.UUID{uuid.New()}))

	// Wait for the sync attempt to land, then navigate. A discarded answer
	// must not be re-sent.
	time.Sleep(50 * time.Millisecond)
	fake.setUpsertErr(nil)
	require.NoError(t, c.Advance(ctx))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fake.upsertCount())
}

func TestAdvancePastEndFinalizes(t *testing.T) {
	fake, testIDs := newFakeBackend(2)
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Advance(ctx))

	assert.Equal(t, model.SessionStatusCompleted, c.Status())
	assert.Equal(t, 1, fake.completions())

	session := c.Session()
	require.NotNil(t, session.FinishedAt)
	require.NotNil(t, session.TimeSpentMinutes)
}

func TestFinalizeFlushesPendingAnswersFirst(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	fake.setUpsertErr(&backend.NetworkError{Op: "queue answer", Err: errors.New("timeout")})
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	view, err := c.CurrentQuestion(ctx)
	require.NoError(t, err)
	selected := []uuid.UUID{view.Options[2].ID}
	require.NoError(t, c.SubmitAnswer(ctx, selected))
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, fake.upsertCount())

	fake.setUpsertErr(nil)
	require.NoError(t, c.Finalize(ctx))

	events := fake.eventLog()
	require.Len(t, events, 2)
	assert.Equal(t, "upsert:"+view.QuestionID.String(), events[0])
	assert.Equal(t, "complete", events[1])
	assert.Equal(t, model.SessionStatusCompleted, c.Status())
}

func TestConcurrentFinalizeCompletesOnce(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	fake.completeDelay = 30 * time.Millisecond
	c := newTestController(fake)
	startSession(t, c, testIDs)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Finalize(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fake.completions())
	assert.Equal(t, model.SessionStatusCompleted, c.Status())
}

func TestFinalizeFailureAllowsRetry(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	fake.setCompleteErr(&backend.NetworkError{Op: "complete session", Err: errors.New("unreachable")})
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	require.Error(t, c.Finalize(ctx))
	assert.Equal(t, model.SessionStatusFailed, c.Status())

	fake.setCompleteErr(nil)
	require.NoError(t, c.Finalize(ctx))
	assert.Equal(t, model.SessionStatusCompleted, c.Status())
	assert.Equal(t, 2, fake.completions())
}

func TestFinalizeBeforeStartRejected(t *testing.T) {
	fake, _ := newFakeBackend(3)
	c := newTestController(fake)

	assert.ErrorIs(t, c.Finalize(context.Background()), ErrNotStarted)
}

func TestTimerExpiryAutoFinalizes(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	for i := range fake.allocations {
		fake.allocations[i].TimeSeconds = 1
	}
	c := newTestController(fake)
	c.tickInterval = 2 * time.Millisecond
	startSession(t, c, testIDs)

	require.Eventually(t, func() bool {
		return c.Status() == model.SessionStatusCompleted
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fake.completions())

	notices := c.DrainNotices()
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[0], "Time has expired")
}

func TestManualFinishCancelsTimer(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	for i := range fake.allocations {
		fake.allocations[i].TimeSeconds = 2
	}
	c := newTestController(fake)
	c.tickInterval = 2 * time.Millisecond
	startSession(t, c, testIDs)

	require.NoError(t, c.Finalize(context.Background()))

	// Let the timer horizon pass; expiry must not trigger a second completion.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, fake.completions())
	assert.Empty(t, c.DrainNotices())
}

func TestSnapshotCarriesNumberingAndProgress(t *testing.T) {
	fake, testIDs := newFakeBackend(10, 15, 12)
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.QuestionNumber)
	assert.Equal(t, 37, snap.TotalQuestions)
	assert.Zero(t, snap.AnsweredCount)
	require.NotNil(t, snap.Question)

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Advance(ctx))
	}
	snap, err = c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, snap.QuestionNumber)
	assert.Equal(t, model.Position{TestIndex: 1, QuestionIndex: 0}, snap.Position)
}

func TestSnapshotConcurrentWithNavigation(t *testing.T) {
	fake, testIDs := newFakeBackend(10, 15, 12)
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			snap, err := c.Snapshot(ctx)
			if !assert.NoError(t, err) {
				return
			}
			assert.GreaterOrEqual(t, snap.QuestionNumber, 1)
			assert.LessOrEqual(t, snap.QuestionNumber, snap.TotalQuestions)
		}
	}()

	for i := 0; i < 200; i++ {
		require.NoError(t, c.Advance(ctx))
		require.NoError(t, c.Retreat(ctx))
	}
	close(done)
	wg.Wait()
}

func TestTimerExpiryFlushesPendingAnswerFirst(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	for i := range fake.allocations {
		fake.allocations[i].TimeSeconds = 1
	}
	fake.setUpsertErr(&backend.NetworkError{Op: "queue answer", Err: errors.New("timeout")})
	c := newTestController(fake)
	c.tickInterval = 50 * time.Millisecond
	startSession(t, c, testIDs)
	ctx := context.Background()

	view, err := c.CurrentQuestion(ctx)
	require.NoError(t, err)
	selected := []uuid.UUID{view.Options[1].ID}
	require.NoError(t, c.SubmitAnswer(ctx, selected))

	// Let the failing sync land so the answer sits unacknowledged, then
	// restore the backend before the countdown runs out.
	time.Sleep(20 * time.Millisecond)
	fake.setUpsertErr(nil)

	require.Eventually(t, func() bool {
		return c.Status() == model.SessionStatusCompleted
	}, time.Second, 5*time.Millisecond)

	events := fake.eventLog()
	require.Len(t, events, 2)
	assert.Equal(t, "upsert:"+view.QuestionID.String(), events[0])
	assert.Equal(t, "complete", events[1])

	call, ok := fake.lastUpsert()
	require.True(t, ok)
	assert.Equal(t, selected, call.optionIDs)
}

func TestResetReturnsToNotStarted(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	c := newTestController(fake)
	startSession(t, c, testIDs)
	ctx := context.Background()

	require.NoError(t, c.SubmitAnswer(ctx, []uuid.UUID{uuid.New()}))
	require.NoError(t, c.Finalize(ctx))
	c.Reset()

	assert.Equal(t, model.SessionStatusNotStarted, c.Status())
	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.AnsweredCount)
	assert.Nil(t, snap.Question)

	// A fresh session may start after reset.
	startSession(t, c, testIDs)
	assert.Equal(t, model.SessionStatusInProgress, c.Status())
}

func TestRegistryOneControllerPerUser(t *testing.T) {
	fake, _ := newFakeBackend(3)
	registry := NewRegistry(fake, zerolog.Nop())
	userA, userB := uuid.New(), uuid.New()

	assert.Same(t, registry.For(userA), registry.For(userA))
	assert.NotSame(t, registry.For(userA), registry.For(userB))

	registry.Release(userA)
	assert.NotSame(t, registry.For(userA), registry.For(userB))
}
