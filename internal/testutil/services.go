package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Environment variables naming throwaway backends for integration tests.
const (
	PostgresURLEnv = "TEST_DATABASE_URL"
	RedisAddrEnv   = "TEST_REDIS_ADDR"
)

// Postgres connects to TEST_DATABASE_URL or skips the test. The pool is
// closed when the test ends.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Redis connects to TEST_REDIS_ADDR or skips the test. The database is
// flushed before use and the client closed when the test ends.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv(RedisAddrEnv)
	if addr == "" {
		t.Skipf("%s not set", RedisAddrEnv)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
