// internal/circulation/service.go
package circulation

import (
	"context"
)

// Service defines the interface for the circulation service.
type Service interface {
	AddBook(ctx context.Context, title string, copies int) error
	BorrowBook(ctx context.Context, memberID int64, title string) (bool, error)
	ReturnBook(ctx context.Context, memberID int64, title string) (bool, error)
	GetAvailableBooks(ctx context.Context) ([]Book, error)
}

// BookDirectory is the source of truth for book records.
// Find reports found=false for an unknown title instead of returning an error.
type BookDirectory interface {
	Find(ctx context.Context, title string) (book Book, found bool, err error)
	Save(ctx context.Context, book Book) error
	ListAll(ctx context.Context) ([]Book, error)
}

// MemberValidator decides whether a member may currently borrow.
type MemberValidator interface {
	IsValid(ctx context.Context, memberID int64) (bool, error)
}

// Notifier delivers circulation events. Delivery failures stay inside the notifier.
type Notifier interface {
	NotifyBorrow(ctx context.Context, memberID int64, title string)
	NotifyReturn(ctx context.Context, memberID int64, title string)
}
