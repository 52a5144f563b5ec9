package engine

import (
	"context"
	"errors"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// ErrSequenceExhausted is returned by Next on the last question of the last
// test. It is a navigation signal, not a failure: the controller treats it as
// the implicit finalize trigger.
var ErrSequenceExhausted = errors.New("question sequence exhausted")

var errEmptyQuestionSet = errors.New("test has no questions")

// NavigationCursor flattens an ordered list of tests, each with its own
// question count, into one linear position. Question counts always come from
// the QuestionCache; nothing here assumes a fixed per-test size.
type NavigationCursor struct {
	tests []uuid.UUID
	cache *QuestionCache
	pos   model.Position
}

// NewNavigationCursor creates a cursor at (0,0) over the given test sequence.
func NewNavigationCursor(tests []uuid.UUID, cache *QuestionCache) *NavigationCursor {
	return &NavigationCursor{tests: tests, cache: cache}
}

// Position returns the current (test, question) location.
func (c *NavigationCursor) Position() model.Position {
	return c.pos
}

// CurrentTest returns the test the cursor is on.
func (c *NavigationCursor) CurrentTest() uuid.UUID {
	return c.tests[c.pos.TestIndex]
}

// Next advances one question. Crossing a test boundary requires the next
// test's question set, fetched on demand through the cache. At the very end
// it returns ErrSequenceExhausted and leaves the position unchanged.
func (c *NavigationCursor) Next(ctx context.Context) error {
	count, err := c.cache.Count(ctx, c.CurrentTest())
	if err != nil {
		return err
	}

	if c.pos.QuestionIndex+1 < count {
		c.pos.QuestionIndex++
		return nil
	}

	if c.pos.TestIndex+1 < len(c.tests) {
		// Resolve the next test before moving so the position is never on a
		// test whose length is unknown.
		if _, err := c.cache.Load(ctx, c.tests[c.pos.TestIndex+1]); err != nil {
			return err
		}
		c.pos.TestIndex++
		c.pos.QuestionIndex = 0
		return nil
	}

	return ErrSequenceExhausted
}

// Previous moves one question back, crossing into the last question of the
// preceding test when needed. On the first question of the first test it is
// a no-op.
func (c *NavigationCursor) Previous(ctx context.Context) error {
	if c.pos.QuestionIndex > 0 {
		c.pos.QuestionIndex--
		return nil
	}

	if c.pos.TestIndex > 0 {
		count, err := c.cache.Count(ctx, c.tests[c.pos.TestIndex-1])
		if err != nil {
			return err
		}
		c.pos.TestIndex--
		c.pos.QuestionIndex = count - 1
	}
	return nil
}

// QuestionNumber returns the global 1-based number of the current question,
// summing the real question counts of all preceding tests.
func (c *NavigationCursor) QuestionNumber(ctx context.Context) (int, error) {
	return c.QuestionNumberAt(ctx, c.pos)
}

// QuestionNumberAt computes the global 1-based number for the given position.
// It reads no mutable cursor state, so callers holding their own copy of the
// position may call it without synchronizing against navigation.
func (c *NavigationCursor) QuestionNumberAt(ctx context.Context, pos model.Position) (int, error) {
	n := pos.QuestionIndex + 1
	for i := 0; i < pos.TestIndex; i++ {
		count, err := c.cache.Count(ctx, c.tests[i])
		if err != nil {
			return 0, err
		}
		n += count
	}
	return n, nil
}

// TotalQuestions returns the session-wide question count.
func (c *NavigationCursor) TotalQuestions(ctx context.Context) (int, error) {
	total := 0
	for _, testID := range c.tests {
		count, err := c.cache.Count(ctx, testID)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
