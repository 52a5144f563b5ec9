package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a bundle of tests a user selects from to form a session.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	// SubjectLimit caps how many tests of this product may be selected at once.
	SubjectLimit int       `json:"subject_limit"`
	CreatedAt    time.Time `json:"created_at"`
}
