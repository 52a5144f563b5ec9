// Package engine implements the exam session engine: question cache, answer
// ledger, navigation cursor, countdown timer and the session controller that
// orchestrates them. The engine holds all in-progress session state in memory
// and reconciles it with the authoritative backend; it exposes read accessors
// and intents only, never a mutable store.
package engine

import (
	"context"
	"sync"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// QuestionCache lazily loads and memoizes the ordered question list per test.
// It is the only component that performs backend reads for question content.
type QuestionCache struct {
	backend backend.Backend
	mu      sync.Mutex
	sets    map[uuid.UUID]*model.QuestionSet
}

// NewQuestionCache creates an empty cache over the given backend.
func NewQuestionCache(b backend.Backend) *QuestionCache {
	return &QuestionCache{
		backend: b,
		sets:    make(map[uuid.UUID]*model.QuestionSet),
	}
}

// Load returns the question set for testID, fetching it from the backend on
// the first call and serving the memoized value afterwards. A backend failure
// or an empty question list yields a *backend.FetchError: without a known
// question count the session cannot navigate past this test.
func (c *QuestionCache) Load(ctx context.Context, testID uuid.UUID) (*model.QuestionSet, error) {
	c.mu.Lock()
	if set, ok := c.sets[testID]; ok {
		c.mu.Unlock()
		return set, nil
	}
	c.mu.Unlock()

	questions, err := c.backend.LoadQuestions(ctx, testID)
	if err != nil {
		return nil, &backend.FetchError{TestID: testID, Err: err}
	}
	if len(questions) == 0 {
		return nil, &backend.FetchError{TestID: testID, Err: errEmptyQuestionSet}
	}

	set := &model.QuestionSet{TestID: testID, Questions: questions}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent Load may have stored the set first; keep that one so all
	// callers observe a single value.
	if existing, ok := c.sets[testID]; ok {
		return existing, nil
	}
	c.sets[testID] = set
	return set, nil
}

// Count returns the question count of a test, loading the set if needed.
func (c *QuestionCache) Count(ctx context.Context, testID uuid.UUID) (int, error) {
	set, err := c.Load(ctx, testID)
	if err != nil {
		return 0, err
	}
	return set.Len(), nil
}

// Invalidate drops the memoized set for a test. The next Load fetches again.
func (c *QuestionCache) Invalidate(testID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, testID)
}
