package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libracirc/internal/circulation"
	"libracirc/internal/eventstore"
)

// Schema creates the books table. The journal table comes from eventstore.Schema.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
	seq BIGSERIAL,
	id UUID PRIMARY KEY,
	title TEXT NOT NULL UNIQUE,
	copies INT NOT NULL,
	version INT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresDirectory stores books in Postgres and journals every change in the same transaction.
type PostgresDirectory struct {
	db     *sqlx.DB
	events *eventstore.EventStore
}

func NewPostgresDirectory(db *sqlx.DB, es *eventstore.EventStore) *PostgresDirectory {
	return &PostgresDirectory{db: db, events: es}
}

// Migrate creates the tables the directory needs.
func (d *PostgresDirectory) Migrate(ctx context.Context) error {
	for _, stmt := range []string{Schema, eventstore.Schema} {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (d *PostgresDirectory) Find(ctx context.Context, title string) (circulation.Book, bool, error) {
	var book circulation.Book
	err := d.db.GetContext(ctx, &book, `
		SELECT id, title, copies, version
		FROM books
		WHERE title = $1
	`, title)
	if errors.Is(err, sql.ErrNoRows) {
		return circulation.Book{}, false, nil
	}
	if err != nil {
		return circulation.Book{}, false, fmt.Errorf("find book: %w", err)
	}
	return book, true, nil
}

// Save writes book and appends the matching journal entry.
// The stored version must be exactly one below book.Version.
func (d *PostgresDirectory) Save(ctx context.Context, book circulation.Book) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current circulation.Book
	err = tx.GetContext(ctx, &current, `
		SELECT id, title, copies, version
		FROM books
		WHERE id = $1
		FOR UPDATE
	`, book.ID)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("lock book: %w", err)
	}

	if book.Version != current.Version+1 {
		return fmt.Errorf("%w: %q stored at version %d, got %d", ErrVersionConflict, book.Title, current.Version, book.Version)
	}

	var event eventstore.Event
	if exists {
		_, err = tx.ExecContext(ctx, `
			UPDATE books
			SET copies = $1, version = $2, updated_at = NOW()
			WHERE id = $3
		`, book.Copies, book.Version, book.ID)
		event, err = journalEntry(err, EventBookCopiesChanged, BookCopiesChangedEvent{
			Title:  book.Title,
			Copies: book.Copies,
			Delta:  book.Copies - current.Copies,
		})
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books (id, title, copies, version)
			VALUES ($1, $2, $3, $4)
		`, book.ID, book.Title, book.Copies, book.Version)
		event, err = journalEntry(err, EventBookAdded, BookAddedEvent{
			Title:  book.Title,
			Copies: book.Copies,
		})
	}
	if err != nil {
		return err
	}

	if err := d.events.Append(ctx, tx, book.ID, current.Version, event); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return fmt.Errorf("%w: %v", ErrVersionConflict, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func journalEntry(writeErr error, eventType string, data any) (eventstore.Event, error) {
	var pqErr *pq.Error
	if errors.As(writeErr, &pqErr) && pqErr.Code == "23505" {
		return eventstore.Event{}, fmt.Errorf("%w: %s", ErrVersionConflict, pqErr.Detail)
	}
	if writeErr != nil {
		return eventstore.Event{}, fmt.Errorf("write book: %w", writeErr)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return eventstore.Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return eventstore.Event{EventType: eventType, EventData: payload}, nil
}

// ListAll returns every book in the order titles were first stored.
func (d *PostgresDirectory) ListAll(ctx context.Context) ([]circulation.Book, error) {
	books := []circulation.Book{}
	err := d.db.SelectContext(ctx, &books, `
		SELECT id, title, copies, version
		FROM books
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// History returns the journaled copy-count changes for title, oldest first.
func (d *PostgresDirectory) History(ctx context.Context, title string) ([]Change, error) {
	var id uuid.UUID
	err := d.db.GetContext(ctx, &id, `SELECT id FROM books WHERE title = $1`, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}

	events, err := d.events.Load(ctx, d.db, id)
	if err != nil {
		return nil, err
	}

	changes := make([]Change, 0, len(events))
	for _, event := range events {
		change := Change{Type: event.EventType, Version: event.Version, At: event.CreatedAt}
		switch event.EventType {
		case EventBookAdded:
			var data BookAddedEvent
			if err := json.Unmarshal(event.EventData, &data); err != nil {
				return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
			}
			change.Copies, change.Delta = data.Copies, data.Copies
		case EventBookCopiesChanged:
			var data BookCopiesChangedEvent
			if err := json.Unmarshal(event.EventData, &data); err != nil {
				return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
			}
			change.Copies, change.Delta = data.Copies, data.Delta
		}
		changes = append(changes, change)
	}
	return changes, nil
}
