package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLedgerReadYourWrites(t *testing.T) {
	ledger := NewAnswerLedger()
	testID, questionID := uuid.New(), uuid.New()
	opts := []uuid.UUID{uuid.New(), uuid.New()}

	ledger.Record(testID, questionID, opts)
	assert.Equal(t, opts, ledger.Lookup(testID, questionID))
	assert.Equal(t, 1, ledger.Len())
}

func TestLedgerUpsertReplacesPriorValue(t *testing.T) {
	ledger := NewAnswerLedger()
	testID, questionID := uuid.New(), uuid.New()

	ledger.Record(testID, questionID, []uuid.UUID{uuid.New()})
	latest := []uuid.UUID{uuid.New()}
	ledger.Record(testID, questionID, latest)

	assert.Equal(t, latest, ledger.Lookup(testID, questionID))
	assert.Equal(t, 1, ledger.Len())
}

func TestLedgerCollapsesDuplicateOptions(t *testing.T) {
	ledger := NewAnswerLedger()
	testID, questionID := uuid.New(), uuid.New()
	a, b := uuid.New(), uuid.New()

	ledger.Record(testID, questionID, []uuid.UUID{a, b, a, b, a})
	assert.Equal(t, []uuid.UUID{a, b}, ledger.Lookup(testID, questionID))
}

func TestLedgerEmptySelectionIsDistinctFromUnanswered(t *testing.T) {
	ledger := NewAnswerLedger()
	testID, questionID := uuid.New(), uuid.New()

	assert.Nil(t, ledger.Lookup(testID, questionID))

	// Clearing the selection is still an answer entry.
	ledger.Record(testID, questionID, nil)
	got := ledger.Lookup(testID, questionID)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, ledger.Len())
}

func TestLedgerLookupReturnsCopy(t *testing.T) {
	ledger := NewAnswerLedger()
	testID, questionID := uuid.New(), uuid.New()
	a, b := uuid.New(), uuid.New()

	ledger.Record(testID, questionID, []uuid.UUID{a, b})
	got := ledger.Lookup(testID, questionID)
	got[0] = uuid.New()

	assert.Equal(t, []uuid.UUID{a, b}, ledger.Lookup(testID, questionID))
}

func TestLedgerSnapshotAndReset(t *testing.T) {
	ledger := NewAnswerLedger()
	testID := uuid.New()

	ledger.Record(testID, uuid.New(), []uuid.UUID{uuid.New()})
	ledger.Record(testID, uuid.New(), []uuid.UUID{uuid.New()})
	assert.Len(t, ledger.Snapshot(), 2)

	ledger.Reset()
	assert.Zero(t, ledger.Len())
	assert.Empty(t, ledger.Snapshot())
}
