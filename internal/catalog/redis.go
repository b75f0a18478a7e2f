package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"libracirc/internal/circulation"
)

// redisBook is the stored document. Unlike the API view it carries the version.
type redisBook struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Copies  int       `json:"copies"`
	Version int       `json:"version"`
}

func encodeBook(book circulation.Book) ([]byte, error) {
	return json.Marshal(redisBook{ID: book.ID, Title: book.Title, Copies: book.Copies, Version: book.Version})
}

func decodeBook(raw []byte) (circulation.Book, error) {
	var doc redisBook
	if err := json.Unmarshal(raw, &doc); err != nil {
		return circulation.Book{}, err
	}
	return circulation.Book{ID: doc.ID, Title: doc.Title, Copies: doc.Copies, Version: doc.Version}, nil
}

// RedisDirectory keeps one JSON document per title plus a list that records insertion order.
type RedisDirectory struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*RedisDirectory)

func WithKeyPrefix(prefix string) RedisOption {
	return func(d *RedisDirectory) { d.prefix = strings.Trim(prefix, ":") }
}

func NewRedisDirectory(rdb *redis.Client, opts ...RedisOption) *RedisDirectory {
	d := &RedisDirectory{rdb: rdb, prefix: "libracirc"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RedisDirectory) bookKey(title string) string {
	return d.prefix + ":book:" + title
}

func (d *RedisDirectory) orderKey() string {
	return d.prefix + ":titles"
}

func (d *RedisDirectory) Find(ctx context.Context, title string) (circulation.Book, bool, error) {
	return d.get(ctx, d.rdb, title)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (d *RedisDirectory) get(ctx context.Context, c stringGetter, title string) (circulation.Book, bool, error) {
	raw, err := c.Get(ctx, d.bookKey(title)).Bytes()
	if errors.Is(err, redis.Nil) {
		return circulation.Book{}, false, nil
	}
	if err != nil {
		return circulation.Book{}, false, fmt.Errorf("get book: %w", err)
	}

	book, err := decodeBook(raw)
	if err != nil {
		return circulation.Book{}, false, fmt.Errorf("decode book %q: %w", title, err)
	}
	return book, true, nil
}

// Save writes book under WATCH so a concurrent writer surfaces as ErrVersionConflict.
func (d *RedisDirectory) Save(ctx context.Context, book circulation.Book) error {
	key := d.bookKey(book.Title)
	payload, err := encodeBook(book)
	if err != nil {
		return fmt.Errorf("encode book: %w", err)
	}

	err = d.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := d.get(ctx, tx, book.Title)
		if err != nil {
			return err
		}
		if book.Version != current.Version+1 {
			return fmt.Errorf("%w: %q stored at version %d, got %d", ErrVersionConflict, book.Title, current.Version, book.Version)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if !exists {
				pipe.RPush(ctx, d.orderKey(), book.Title)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %q changed during save", ErrVersionConflict, book.Title)
	}
	return err
}

func (d *RedisDirectory) ListAll(ctx context.Context) ([]circulation.Book, error) {
	titles, err := d.rdb.LRange(ctx, d.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	if len(titles) == 0 {
		return []circulation.Book{}, nil
	}

	keys := make([]string, len(titles))
	for i, title := range titles {
		keys[i] = d.bookKey(title)
	}

	values, err := d.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	books := make([]circulation.Book, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		book, err := decodeBook([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode book %q: %w", titles[i], err)
		}
		books = append(books, book)
	}
	return books, nil
}
