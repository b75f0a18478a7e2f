package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"libracirc/internal/circulation"
)

const (
	EventBorrowed = "book.borrowed"
	EventReturned = "book.returned"
)

// Message is the payload published on the notification channel.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RedisNotifier publishes events on a pub/sub channel. Publish failures are logged, not returned.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisNotifier(rdb *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{rdb: rdb, channel: channel, logger: logger}
}

func (n *RedisNotifier) NotifyBorrow(ctx context.Context, memberID int64, title string) {
	n.publish(ctx, Message{
		Type: EventBorrowed,
		Data: circulation.BorrowedEvent{MemberID: memberID, Title: title},
	})
}

func (n *RedisNotifier) NotifyReturn(ctx context.Context, memberID int64, title string) {
	n.publish(ctx, Message{
		Type: EventReturned,
		Data: circulation.ReturnedEvent{MemberID: memberID, Title: title},
	})
}

func (n *RedisNotifier) publish(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to marshal notification", "type", msg.Type, "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.WarnContext(ctx, "failed to publish notification", "type", msg.Type, "channel", n.channel, "error", err)
	}
}
