// Package eventstore keeps an append-only journal of book copy-count changes in Postgres.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrEmptyAppend         = errors.New("no events to append")
)

// Schema creates the journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS book_events (
	id BIGSERIAL PRIMARY KEY,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	event_data JSONB NOT NULL,
	version INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (aggregate_id, version)
);`

// Event is one journaled change to a book aggregate.
type Event struct {
	ID          int64           `json:"id" db:"id"`
	AggregateID uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	EventType   string          `json:"event_type" db:"event_type"`
	EventData   json.RawMessage `json:"event_data" db:"event_data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// EventStore appends and loads journal entries.
type EventStore struct {
	tracer trace.Tracer
	now    func() time.Time
}

// NewEventStore creates a new event store.
func NewEventStore() *EventStore {
	return &EventStore{
		tracer: otel.Tracer("libracirc/eventstore"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append writes events for aggregateID inside q, which is normally the caller's transaction.
// expectedVersion is the aggregate version the caller read before mutating it.
func (es *EventStore) Append(ctx context.Context, q Querier, aggregateID uuid.UUID, expectedVersion int, events ...Event) error {
	if len(events) == 0 {
		return ErrEmptyAppend
	}

	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	var currentVersion int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM book_events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	for i, event := range events {
		version := expectedVersion + i + 1

		var eventID int64
		err = q.QueryRowContext(ctx, `
			INSERT INTO book_events (aggregate_id, event_type, event_data, version, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, aggregateID, event.EventType, string(event.EventData), version, es.now()).Scan(&eventID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	return nil
}

// Load returns the journal of one aggregate in version order.
func (es *EventStore) Load(ctx context.Context, q Querier, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	rows, err := q.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, event_data, version, created_at
		FROM book_events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var data []byte
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.EventType, &data, &event.Version, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.EventData = data
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
