package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorWalksForwardAcrossBoundaries(t *testing.T) {
	fake, testIDs := newFakeBackend(10, 15, 12)
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)
	ctx := context.Background()

	assert.Equal(t, model.Position{}, cursor.Position())

	// Walk to the last question of the first test.
	for i := 0; i < 9; i++ {
		require.NoError(t, cursor.Next(ctx))
	}
	assert.Equal(t, model.Position{TestIndex: 0, QuestionIndex: 9}, cursor.Position())

	// Boundary crossing lands on the first question of the next test.
	require.NoError(t, cursor.Next(ctx))
	assert.Equal(t, model.Position{TestIndex: 1, QuestionIndex: 0}, cursor.Position())
	assert.Equal(t, testIDs[1], cursor.CurrentTest())
}

func TestCursorNumberingUsesRealCounts(t *testing.T) {
	fake, testIDs := newFakeBackend(10, 15, 12)
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)
	ctx := context.Background()

	total, err := cursor.TotalQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 37, total)

	number, err := cursor.QuestionNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, number)

	// First question of the second test is number 11, of the third 26.
	for i := 0; i < 10; i++ {
		require.NoError(t, cursor.Next(ctx))
	}
	number, err = cursor.QuestionNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, number)

	for i := 0; i < 15; i++ {
		require.NoError(t, cursor.Next(ctx))
	}
	assert.Equal(t, model.Position{TestIndex: 2, QuestionIndex: 0}, cursor.Position())
	number, err = cursor.QuestionNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 26, number)
}

func TestCursorExhaustionLeavesPositionUnchanged(t *testing.T) {
	fake, testIDs := newFakeBackend(2, 2)
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, cursor.Next(ctx))
	}
	last := cursor.Position()
	assert.Equal(t, model.Position{TestIndex: 1, QuestionIndex: 1}, last)

	err := cursor.Next(ctx)
	assert.ErrorIs(t, err, ErrSequenceExhausted)
	assert.Equal(t, last, cursor.Position())
}

func TestCursorPreviousAcrossBoundary(t *testing.T) {
	fake, testIDs := newFakeBackend(3, 2)
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, cursor.Next(ctx))
	}
	require.Equal(t, model.Position{TestIndex: 1, QuestionIndex: 0}, cursor.Position())

	// Backwards over the boundary lands on the previous test's last question.
	require.NoError(t, cursor.Previous(ctx))
	assert.Equal(t, model.Position{TestIndex: 0, QuestionIndex: 2}, cursor.Position())
}

func TestCursorPreviousAtOriginIsNoop(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)

	require.NoError(t, cursor.Previous(context.Background()))
	assert.Equal(t, model.Position{}, cursor.Position())
}

func TestCursorBoundaryFetchFailureKeepsPosition(t *testing.T) {
	fake, testIDs := newFakeBackend(1, 5)
	fake.loadErr[testIDs[1]] = errors.New("timeout")
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)
	ctx := context.Background()

	err := cursor.Next(ctx)
	var fetchErr *backend.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, testIDs[1], fetchErr.TestID)
	assert.Equal(t, model.Position{}, cursor.Position())

	// Recovery: the same navigation retried now succeeds.
	fake.loadErr[testIDs[1]] = nil
	require.NoError(t, cursor.Next(ctx))
	assert.Equal(t, model.Position{TestIndex: 1, QuestionIndex: 0}, cursor.Position())
}

func TestCursorLoadsTestsLazily(t *testing.T) {
	fake, testIDs := newFakeBackend(4, 4)
	cache := NewQuestionCache(fake)
	cursor := NewNavigationCursor(testIDs, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, cursor.Next(ctx))
	}
	assert.Zero(t, fake.loadCount(testIDs[1]))

	require.NoError(t, cursor.Next(ctx))
	assert.Equal(t, 1, fake.loadCount(testIDs[1]))
}
