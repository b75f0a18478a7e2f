package catalog

import (
	"context"
	"fmt"
	"sync"

	"libracirc/internal/circulation"
)

// MemoryDirectory is an in-process book directory that keeps insertion order.
type MemoryDirectory struct {
	mu    sync.RWMutex
	books map[string]circulation.Book
	order []string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{books: make(map[string]circulation.Book)}
}

func (d *MemoryDirectory) Find(_ context.Context, title string) (circulation.Book, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	book, ok := d.books[title]
	return book, ok, nil
}

// Save stores book if its version is exactly one past the stored version.
func (d *MemoryDirectory) Save(_ context.Context, book circulation.Book) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, exists := d.books[book.Title]
	if book.Version != current.Version+1 {
		return fmt.Errorf("%w: %q stored at version %d, got %d", ErrVersionConflict, book.Title, current.Version, book.Version)
	}
	if !exists {
		d.order = append(d.order, book.Title)
	}
	d.books[book.Title] = book
	return nil
}

func (d *MemoryDirectory) ListAll(_ context.Context) ([]circulation.Book, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	books := make([]circulation.Book, 0, len(d.order))
	for _, title := range d.order {
		books = append(books, d.books[title])
	}
	return books, nil
}
