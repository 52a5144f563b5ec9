package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionCacheMemoizesFetch(t *testing.T) {
	fake, testIDs := newFakeBackend(5)
	cache := NewQuestionCache(fake)
	ctx := context.Background()

	first, err := cache.Load(ctx, testIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 5, first.Len())

	second, err := cache.Load(ctx, testIDs[0])
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, fake.loadCount(testIDs[0]))
}

func TestQuestionCacheFailureIsNotMemoized(t *testing.T) {
	fake, testIDs := newFakeBackend(3)
	fake.loadErr[testIDs[0]] = errors.New("connection refused")
	cache := NewQuestionCache(fake)
	ctx := context.Background()

	_, err := cache.Load(ctx, testIDs[0])
	var fetchErr *backend.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, testIDs[0], fetchErr.TestID)

	// Backend recovers; the next Load must fetch again and succeed.
	fake.loadErr[testIDs[0]] = nil
	set, err := cache.Load(ctx, testIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 2, fake.loadCount(testIDs[0]))
}

func TestQuestionCacheEmptySetIsFetchError(t *testing.T) {
	fake, testIDs := newFakeBackend(0)
	cache := NewQuestionCache(fake)

	_, err := cache.Load(context.Background(), testIDs[0])
	var fetchErr *backend.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestQuestionCacheCount(t *testing.T) {
	fake, testIDs := newFakeBackend(7)
	cache := NewQuestionCache(fake)

	count, err := cache.Count(context.Background(), testIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestQuestionCacheInvalidate(t *testing.T) {
	fake, testIDs := newFakeBackend(4)
	cache := NewQuestionCache(fake)
	ctx := context.Background()

	_, err := cache.Load(ctx, testIDs[0])
	require.NoError(t, err)

	cache.Invalidate(testIDs[0])
	_, err = cache.Load(ctx, testIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 2, fake.loadCount(testIDs[0]))
}
