package model

import (
	"github.com/google/uuid"
)

// Question represents a single exam question with its ordered options.
type Question struct {
	ID       uuid.UUID `json:"id"`
	TestID   uuid.UUID `json:"test_id"`
	Text     string    `json:"text"`
	ImgPath  *string   `json:"img_path,omitempty"`
	OrderNum int       `json:"order_num"`
	Options  []Option  `json:"options"`
}

// Option represents an answer option. The correctness flag is never serialized
// to clients; it is consumed only by the external reporting component.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	ImgPath    *string   `json:"img_path,omitempty"`
	IsCorrect  bool      `json:"-"`
}

// QuestionSet is the ordered question list of one test.
type QuestionSet struct {
	TestID    uuid.UUID  `json:"test_id"`
	Questions []Question `json:"questions"`
}

// Len returns the number of questions in the set.
func (s *QuestionSet) Len() int {
	return len(s.Questions)
}

// QuestionView is the presentation-facing shape of the current question:
// no correctness flags, previously chosen options prefilled from the ledger.
type QuestionView struct {
	TestID            uuid.UUID    `json:"test_id"`
	QuestionID        uuid.UUID    `json:"question_id"`
	Text              string       `json:"text"`
	ImgPath           *string      `json:"img_path,omitempty"`
	Options           []OptionView `json:"options"`
	SelectedOptionIDs []uuid.UUID  `json:"selected_option_ids"`
}

// OptionView is an option as shown to the exam taker.
type OptionView struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	ImgPath *string   `json:"img_path,omitempty"`
}

// ViewFor builds the presentation shape of question q with the given
// prefilled selection.
func ViewFor(q *Question, selected []uuid.UUID) *QuestionView {
	opts := make([]OptionView, len(q.Options))
	for i, o := range q.Options {
		opts[i] = OptionView{ID: o.ID, Text: o.Text, ImgPath: o.ImgPath}
	}
	if selected == nil {
		selected = []uuid.UUID{}
	}
	return &QuestionView{
		TestID:            q.TestID,
		QuestionID:        q.ID,
		Text:              q.Text,
		ImgPath:           q.ImgPath,
		Options:           opts,
		SelectedOptionIDs: selected,
	}
}
