// Package testutil connects tests to optional Postgres and Redis backends.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// PostgresDB attempts to connect to a PostgreSQL database for testing.
// It skips the test if the connection cannot be established.
func PostgresDB(t testing.TB, schema ...string) *sqlx.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getenv("PGHOST", "localhost"),
		getenv("PGPORT", "5432"),
		getenv("PGUSER", "user"),
		getenv("PGPASSWORD", "password"),
		getenv("PGDATABASE", "testdb"),
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// RedisClient connects to REDIS_ADDR (default localhost:6379) or skips the test.
func RedisClient(t testing.TB) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: getenv("REDIS_ADDR", "localhost:6379")})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("skipping: could not connect to redis: %v", err)
	}

	t.Cleanup(func() { rdb.Close() })
	return rdb
}
