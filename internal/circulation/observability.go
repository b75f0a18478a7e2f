// internal/circulation/observability.go
package circulation

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "libracirc/circulation"

// observedService wraps a Service with spans, counters and structured logs.
type observedService struct {
	next    Service
	tracer  trace.Tracer
	logger  *slog.Logger
	borrows metric.Int64Counter
	returns metric.Int64Counter
	added   metric.Int64Counter
}

// NewObservedService decorates svc with OpenTelemetry instrumentation taken from the global providers.
func NewObservedService(svc Service, logger *slog.Logger) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(instrumentationName)

	borrows, err := meter.Int64Counter("circulation.borrows",
		metric.WithDescription("Borrow requests by outcome"))
	if err != nil {
		return nil, err
	}
	returns, err := meter.Int64Counter("circulation.returns",
		metric.WithDescription("Return requests by outcome"))
	if err != nil {
		return nil, err
	}
	added, err := meter.Int64Counter("circulation.copies_added",
		metric.WithDescription("Copies added to the catalogue"))
	if err != nil {
		return nil, err
	}

	return &observedService{
		next:    svc,
		tracer:  otel.Tracer(instrumentationName),
		logger:  logger,
		borrows: borrows,
		returns: returns,
		added:   added,
	}, nil
}

func (o *observedService) AddBook(ctx context.Context, title string, copies int) error {
	ctx, span := o.tracer.Start(ctx, "circulation.add_book",
		trace.WithAttributes(
			attribute.String("book.title", title),
			attribute.Int("book.copies", copies),
		),
	)
	defer span.End()

	err := o.next.AddBook(ctx, title, copies)
	if err != nil {
		recordError(span, err)
		o.logger.WarnContext(ctx, "add book failed", "title", title, "copies", copies, "error", err)
		return err
	}

	o.added.Add(ctx, int64(copies))
	o.logger.InfoContext(ctx, "book added", "title", title, "copies", copies)
	return nil
}

func (o *observedService) BorrowBook(ctx context.Context, memberID int64, title string) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "circulation.borrow_book",
		trace.WithAttributes(
			attribute.Int64("member.id", memberID),
			attribute.String("book.title", title),
		),
	)
	defer span.End()

	ok, err := o.next.BorrowBook(ctx, memberID, title)
	o.borrows.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(ok, err))))
	if err != nil {
		recordError(span, err)
		o.logger.WarnContext(ctx, "borrow failed", "member_id", memberID, "title", title, "error", err)
		return ok, err
	}

	span.SetAttributes(attribute.Bool("borrow.success", ok))
	o.logger.InfoContext(ctx, "borrow processed", "member_id", memberID, "title", title, "borrowed", ok)
	return ok, nil
}

func (o *observedService) ReturnBook(ctx context.Context, memberID int64, title string) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "circulation.return_book",
		trace.WithAttributes(
			attribute.Int64("member.id", memberID),
			attribute.String("book.title", title),
		),
	)
	defer span.End()

	ok, err := o.next.ReturnBook(ctx, memberID, title)
	o.returns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(ok, err))))
	if err != nil {
		recordError(span, err)
		o.logger.WarnContext(ctx, "return failed", "member_id", memberID, "title", title, "error", err)
		return ok, err
	}

	span.SetAttributes(attribute.Bool("return.success", ok))
	o.logger.InfoContext(ctx, "return processed", "member_id", memberID, "title", title, "returned", ok)
	return ok, nil
}

func (o *observedService) GetAvailableBooks(ctx context.Context) ([]Book, error) {
	ctx, span := o.tracer.Start(ctx, "circulation.available_books")
	defer span.End()

	books, err := o.next.GetAvailableBooks(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("books.available", len(books)))
	return books, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func outcome(ok bool, err error) string {
	switch {
	case errors.Is(err, ErrInvalidOperation):
		return "rejected"
	case err != nil:
		return "error"
	case ok:
		return "success"
	default:
		return "unavailable"
	}
}
