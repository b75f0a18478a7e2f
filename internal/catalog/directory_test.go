package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libracirc/internal/circulation"
	"libracirc/internal/eventstore"
	"libracirc/internal/testutil"
)

// runDirectoryContract exercises the behaviour every circulation.BookDirectory must share.
func runDirectoryContract(t *testing.T, newDir func(t *testing.T) circulation.BookDirectory) {
	ctx := context.Background()

	t.Run("unknown title is not found", func(t *testing.T) {
		d := newDir(t)

		_, found, err := d.Find(ctx, "Nothing")

		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("save then find", func(t *testing.T) {
		d := newDir(t)
		book := circulation.Book{ID: uuid.New(), Title: "Dune", Copies: 3, Version: 1}

		require.NoError(t, d.Save(ctx, book))

		got, found, err := d.Find(ctx, "Dune")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, book, got)
	})

	t.Run("update keeps identity", func(t *testing.T) {
		d := newDir(t)
		book := circulation.Book{ID: uuid.New(), Title: "Dune", Copies: 3, Version: 1}
		require.NoError(t, d.Save(ctx, book))

		book.Copies = 2
		book.Version = 2
		require.NoError(t, d.Save(ctx, book))

		got, _, err := d.Find(ctx, "Dune")
		require.NoError(t, err)
		assert.Equal(t, book.ID, got.ID)
		assert.Equal(t, 2, got.Copies)

		all, err := d.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		d := newDir(t)
		book := circulation.Book{ID: uuid.New(), Title: "Dune", Copies: 3, Version: 1}
		require.NoError(t, d.Save(ctx, book))

		err := d.Save(ctx, book)

		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		d := newDir(t)
		for i, title := range []string{"C", "A", "B"} {
			require.NoError(t, d.Save(ctx, circulation.Book{ID: uuid.New(), Title: title, Copies: i, Version: 1}))
		}

		all, err := d.ListAll(ctx)
		require.NoError(t, err)

		titles := make([]string, 0, len(all))
		for _, b := range all {
			titles = append(titles, b.Title)
		}
		assert.Equal(t, []string{"C", "A", "B"}, titles)
	})
}

func TestMemoryDirectory(t *testing.T) {
	runDirectoryContract(t, func(t *testing.T) circulation.BookDirectory {
		return NewMemoryDirectory()
	})
}

func freshPostgres(t *testing.T) (*sqlx.DB, *PostgresDirectory) {
	db := testutil.PostgresDB(t, Schema, eventstore.Schema)
	_, err := db.Exec(`TRUNCATE TABLE books, book_events`)
	require.NoError(t, err)
	return db, NewPostgresDirectory(db, eventstore.NewEventStore())
}

func TestPostgresDirectory(t *testing.T) {
	runDirectoryContract(t, func(t *testing.T) circulation.BookDirectory {
		_, d := freshPostgres(t)
		return d
	})
}

func TestPostgresDirectory_History(t *testing.T) {
	_, d := freshPostgres(t)
	ctx := context.Background()

	svc := circulation.NewService(d, allowAll{}, nopNotifier{})
	require.NoError(t, svc.AddBook(ctx, "Dune", 2))
	_, err := svc.BorrowBook(ctx, 1, "Dune")
	require.NoError(t, err)
	require.NoError(t, svc.AddBook(ctx, "Dune", 3))

	changes, err := d.History(ctx, "Dune")
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, EventBookAdded, changes[0].Type)
	assert.Equal(t, 2, changes[0].Copies)
	assert.Equal(t, -1, changes[1].Delta)
	assert.Equal(t, 1, changes[1].Copies)
	assert.Equal(t, 3, changes[2].Delta)
	assert.Equal(t, 4, changes[2].Copies)
	assert.Equal(t, 3, changes[2].Version)

	none, err := d.History(ctx, "Unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRedisDirectory(t *testing.T) {
	runDirectoryContract(t, func(t *testing.T) circulation.BookDirectory {
		rdb := testutil.RedisClient(t)
		prefix := fmt.Sprintf("libracirc-test:%s", uuid.NewString())
		t.Cleanup(func() {
			ctx := context.Background()
			keys, _ := rdb.Keys(ctx, prefix+":*").Result()
			if len(keys) > 0 {
				rdb.Del(ctx, keys...)
			}
		})
		return NewRedisDirectory(rdb, WithKeyPrefix(prefix))
	})
}

type allowAll struct{}

func (allowAll) IsValid(context.Context, int64) (bool, error) { return true, nil }

type nopNotifier struct{}

func (nopNotifier) NotifyBorrow(context.Context, int64, string) {}
func (nopNotifier) NotifyReturn(context.Context, int64, string) {}
