// Package notify delivers circulation events to members and downstream systems.
package notify

import (
	"context"
	"log/slog"

	"libracirc/internal/circulation"
)

// LogNotifier writes each event as a structured log line.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyBorrow(ctx context.Context, memberID int64, title string) {
	n.logger.InfoContext(ctx, "book borrowed", "member_id", memberID, "title", title)
}

func (n *LogNotifier) NotifyReturn(ctx context.Context, memberID int64, title string) {
	n.logger.InfoContext(ctx, "book returned", "member_id", memberID, "title", title)
}

// Fanout forwards every event to each notifier in order.
type Fanout []circulation.Notifier

func (f Fanout) NotifyBorrow(ctx context.Context, memberID int64, title string) {
	for _, n := range f {
		n.NotifyBorrow(ctx, memberID, title)
	}
}

func (f Fanout) NotifyReturn(ctx context.Context, memberID int64, title string) {
	for _, n := range f {
		n.NotifyReturn(ctx, memberID, title)
	}
}
