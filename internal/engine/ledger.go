package engine

import (
	"sync"

	"github.com/google/uuid"
)

// answerKey identifies one question within the session.
type answerKey struct {
	testID     uuid.UUID
	questionID uuid.UUID
}

// AnswerRecord is one ledger entry: the latest option selection for a question.
type AnswerRecord struct {
	TestID     uuid.UUID
	QuestionID uuid.UUID
	OptionIDs  []uuid.UUID
}

// AnswerLedger is the local, upsert-only store of the user's latest choice per
// question. Writes never fail and never touch the network; synchronizing with
// the backend is the controller's concern. Entries survive navigation in both
// directions and are cleared only on session reset.
type AnswerLedger struct {
	mu      sync.RWMutex
	entries map[answerKey][]uuid.UUID
}

// NewAnswerLedger creates an empty ledger.
func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{entries: make(map[answerKey][]uuid.UUID)}
}

// Record stores the selection for a question, fully replacing any prior
// value. Duplicates are collapsed; the stored value has set semantics.
func (l *AnswerLedger) Record(testID, questionID uuid.UUID, optionIDs []uuid.UUID) {
	set := make([]uuid.UUID, 0, len(optionIDs))
	seen := make(map[uuid.UUID]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[answerKey{testID: testID, questionID: questionID}] = set
}

// Lookup returns a copy of the stored selection, or nil if the question has
// not been answered yet.
func (l *AnswerLedger) Lookup(testID, questionID uuid.UUID) []uuid.UUID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored, ok := l.entries[answerKey{testID: testID, questionID: questionID}]
	if !ok {
		return nil
	}
	out := make([]uuid.UUID, len(stored))
	copy(out, stored)
	return out
}

// Len returns the number of answered questions.
func (l *AnswerLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of every entry, in unspecified order.
func (l *AnswerLedger) Snapshot() []AnswerRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]AnswerRecord, 0, len(l.entries))
	for k, v := range l.entries {
		opts := make([]uuid.UUID, len(v))
		copy(opts, v)
		records = append(records, AnswerRecord{TestID: k.testID, QuestionID: k.questionID, OptionIDs: opts})
	}
	return records
}

// Reset clears every entry.
func (l *AnswerLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[answerKey][]uuid.UUID)
}
