// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// MaxCopies bounds the copy count of a single title. Every directory backend can store it.
const MaxCopies = math.MaxInt32

// service implements the Service interface.
type service struct {
	books    BookDirectory
	members  MemberValidator
	notifier Notifier
}

// NewService creates a new circulation service instance.
func NewService(books BookDirectory, members MemberValidator, notifier Notifier) Service {
	return &service{
		books:    books,
		members:  members,
		notifier: notifier,
	}
}

// AddBook registers a new title or adds copies to an existing one.
func (s *service) AddBook(ctx context.Context, title string, copies int) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidArgument)
	}
	if copies <= 0 {
		return fmt.Errorf("%w: copies must be positive, got %d", ErrInvalidArgument, copies)
	}

	book, found, err := s.books.Find(ctx, title)
	if err != nil {
		return err
	}

	if !found {
		book = Book{
			ID:    uuid.New(),
			Title: title,
		}
	}
	if copies > MaxCopies-book.Copies {
		return fmt.Errorf("%w: %q would exceed %d copies", ErrInvalidArgument, title, MaxCopies)
	}
	book.Copies += copies
	book.Version++

	return s.books.Save(ctx, book)
}

// BorrowBook lends one copy of title to the member.
// It returns false when the title is unknown or has no copies left.
func (s *service) BorrowBook(ctx context.Context, memberID int64, title string) (bool, error) {
	// Step 1: Validate the member
	valid, err := s.members.IsValid(ctx, memberID)
	if err != nil {
		return false, err
	}
	if !valid {
		return false, fmt.Errorf("%w: member %d is not eligible to borrow", ErrInvalidOperation, memberID)
	}

	// Step 2: Check availability
	book, found, err := s.books.Find(ctx, title)
	if err != nil {
		return false, err
	}
	if !found || !book.IsAvailable() {
		return false, nil
	}

	// Step 3: Persist, then notify
	book.Copies--
	book.Version++
	if err := s.books.Save(ctx, book); err != nil {
		return false, err
	}

	s.notifier.NotifyBorrow(ctx, memberID, title)
	return true, nil
}

// ReturnBook puts one copy of title back on the shelf.
// Member validity is not checked and no upper bound applies.
func (s *service) ReturnBook(ctx context.Context, memberID int64, title string) (bool, error) {
	book, found, err := s.books.Find(ctx, title)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	book.Copies++
	book.Version++
	if err := s.books.Save(ctx, book); err != nil {
		return false, err
	}

	s.notifier.NotifyReturn(ctx, memberID, title)
	return true, nil
}

// GetAvailableBooks lists the titles with at least one copy, in directory order.
func (s *service) GetAvailableBooks(ctx context.Context) ([]Book, error) {
	all, err := s.books.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]Book, 0, len(all))
	for _, book := range all {
		if book.IsAvailable() {
			available = append(available, book)
		}
	}
	return available, nil
}
