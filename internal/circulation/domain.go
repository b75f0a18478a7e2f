// internal/circulation/domain.go
package circulation

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvalidArgument is returned when a request carries a malformed title or copy count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation is returned when a member is not allowed to borrow.
	ErrInvalidOperation = errors.New("invalid operation")
)

// Book represents one catalogued title and the number of copies currently on the shelf.
// Version is storage bookkeeping and is not part of the JSON view.
type Book struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Title   string    `json:"title" db:"title"`
	Copies  int       `json:"copies" db:"copies"`
	Version int       `json:"-" db:"version"`
}

// IsAvailable reports whether at least one copy can be lent out.
func (b Book) IsAvailable() bool {
	return b.Copies > 0
}

// BorrowedEvent is delivered to notifiers after a successful borrow.
type BorrowedEvent struct {
	MemberID int64  `json:"member_id"`
	Title    string `json:"title"`
}

// ReturnedEvent is delivered to notifiers after a successful return.
type ReturnedEvent struct {
	MemberID int64  `json:"member_id"`
	Title    string `json:"title"`
}
