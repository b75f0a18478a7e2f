// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"
)

// ErrVersionConflict is returned by Save when the stored record changed after it was read.
var ErrVersionConflict = errors.New("book version conflict")

const (
	EventBookAdded         = "BookAdded"
	EventBookCopiesChanged = "BookCopiesChanged"
)

// BookAddedEvent is journaled when a title is first stored.
type BookAddedEvent struct {
	Title  string `json:"title"`
	Copies int    `json:"copies"`
}

// BookCopiesChangedEvent is journaled on every later copy-count change.
type BookCopiesChangedEvent struct {
	Title  string `json:"title"`
	Copies int    `json:"copies"`
	Delta  int    `json:"delta"`
}

// Change is one entry of a title's copy-count history.
type Change struct {
	Type    string    `json:"type"`
	Copies  int       `json:"copies"`
	Delta   int       `json:"delta"`
	Version int       `json:"version"`
	At      time.Time `json:"at"`
}
