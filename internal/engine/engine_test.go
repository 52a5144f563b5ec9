package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// upsertCall records one UpsertAnswer invocation against the fake backend.
type upsertCall struct {
	sessionID  uuid.UUID
	testID     uuid.UUID
	questionID uuid.UUID
	optionIDs  []uuid.UUID
}

// fakeBackend is an in-memory Backend with scriptable failures and an
// ordered event log, so tests can assert both outcomes and call ordering.
type fakeBackend struct {
	mu sync.Mutex

	sessionID   uuid.UUID
	allocations []backend.TestAllocation
	startErr    error
	startCalls  int

	questions map[uuid.UUID][]model.Question
	loadErr   map[uuid.UUID]error
	loadCalls map[uuid.UUID]int

	upsertErr error
	upserts   []upsertCall

	completeErr   error
	completeDelay time.Duration
	completeCalls int
	lastMinutes   int

	events []string
}

// newFakeBackend builds a backend with one test per entry in counts, each
// holding that many questions and a 90 second allocation.
func newFakeBackend(counts ...int) (*fakeBackend, []uuid.UUID) {
	f := &fakeBackend{
		sessionID: uuid.New(),
		questions: make(map[uuid.UUID][]model.Question),
		loadErr:   make(map[uuid.UUID]error),
		loadCalls: make(map[uuid.UUID]int),
	}
	testIDs := make([]uuid.UUID, len(counts))
	for i, n := range counts {
		id := uuid.New()
		testIDs[i] = id
		f.questions[id] = makeQuestions(id, n)
		f.allocations = append(f.allocations, backend.TestAllocation{TestID: id, TimeSeconds: 90})
	}
	return f, testIDs
}

func makeQuestions(testID uuid.UUID, n int) []model.Question {
	questions := make([]model.Question, n)
	for i := range questions {
		q := model.Question{
			ID:       uuid.New(),
			TestID:   testID,
			Text:     fmt.Sprintf("question %d", i+1),
			OrderNum: i + 1,
		}
		for j := 0; j < 4; j++ {
			q.Options = append(q.Options, model.Option{
				ID:         uuid.New(),
				QuestionID: q.ID,
				Text:       fmt.Sprintf("option %d", j+1),
				IsCorrect:  j == 0,
			})
		}
		questions[i] = q
	}
	return questions
}

func (f *fakeBackend) StartSession(ctx context.Context, userID, productID uuid.UUID, testIDs []uuid.UUID) (*backend.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &backend.StartResult{SessionID: f.sessionID, Allocations: f.allocations}, nil
}

func (f *fakeBackend) LoadQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loadCalls[testID]++
	if err := f.loadErr[testID]; err != nil {
		return nil, err
	}
	qs, ok := f.questions[testID]
	if !ok {
		return nil, &backend.NotFoundError{Resource: "test", ID: testID}
	}
	out := make([]model.Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (f *fakeBackend) UpsertAnswer(ctx context.Context, sessionID, testID, questionID uuid.UUID, optionIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return f.upsertErr
	}
	opts := make([]uuid.UUID, len(optionIDs))
	copy(opts, optionIDs)
	f.upserts = append(f.upserts, upsertCall{sessionID: sessionID, testID: testID, questionID: questionID, optionIDs: opts})
	f.events = append(f.events, "upsert:"+questionID.String())
	return nil
}

func (f *fakeBackend) CompleteSession(ctx context.Context, sessionID uuid.UUID, timeSpentMinutes int) error {
	f.mu.Lock()
	delay := f.completeDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.completeCalls++
	f.lastMinutes = timeSpentMinutes
	if f.completeErr != nil {
		return f.completeErr
	}
	f.events = append(f.events, "complete")
	return nil
}

func (f *fakeBackend) setUpsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertErr = err
}

func (f *fakeBackend) setCompleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeErr = err
}

func (f *fakeBackend) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeBackend) completions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeCalls
}

func (f *fakeBackend) loadCount(testID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls[testID]
}

func (f *fakeBackend) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeBackend) lastUpsert() (upsertCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.upserts) == 0 {
		return upsertCall{}, false
	}
	return f.upserts[len(f.upserts)-1], true
}
