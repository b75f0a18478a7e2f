package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libracirc/internal/testutil"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	n.NotifyBorrow(context.Background(), 7, "Dune")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "book borrowed", line["msg"])
	assert.Equal(t, float64(7), line["member_id"])
	assert.Equal(t, "Dune", line["title"])
}

type recordingNotifier struct {
	events []string
}

func (r *recordingNotifier) NotifyBorrow(_ context.Context, _ int64, title string) {
	r.events = append(r.events, "borrow:"+title)
}

func (r *recordingNotifier) NotifyReturn(_ context.Context, _ int64, title string) {
	r.events = append(r.events, "return:"+title)
}

func TestFanout(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	f := Fanout{a, b}

	f.NotifyBorrow(context.Background(), 1, "Dune")
	f.NotifyReturn(context.Background(), 1, "Dune")

	assert.Equal(t, []string{"borrow:Dune", "return:Dune"}, a.events)
	assert.Equal(t, a.events, b.events)
}

func TestRedisNotifier_Publishes(t *testing.T) {
	rdb := testutil.RedisClient(t)
	ctx := context.Background()
	channel := "libracirc-test:" + uuid.NewString()

	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	NewRedisNotifier(rdb, channel, nil).NotifyReturn(ctx, 5, "Dune")

	var msg *redis.Message
	select {
	case msg = <-sub.Channel():
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}

	var got struct {
		Type string `json:"type"`
		Data struct {
			MemberID int64  `json:"member_id"`
			Title    string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, EventReturned, got.Type)
	assert.Equal(t, int64(5), got.Data.MemberID)
	assert.Equal(t, "Dune", got.Data.Title)
}

func TestRedisNotifier_SwallowsPublishErrors(t *testing.T) {
	var buf bytes.Buffer
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	n := NewRedisNotifier(rdb, "nowhere", slog.New(slog.NewTextHandler(&buf, nil)))

	assert.NotPanics(t, func() { n.NotifyBorrow(context.Background(), 1, "Dune") })
	assert.Contains(t, buf.String(), "failed to publish notification")
}
