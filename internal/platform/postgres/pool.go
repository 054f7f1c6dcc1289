// Package postgres opens the pgx connection pool used by the remote profile store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
)

// Config holds pool settings. Zero values fall back to the defaults below.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

const (
	defaultMaxConns        = 10
	defaultMaxConnLifetime = 30 * time.Minute
	defaultMaxConnIdleTime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// ErrNoURL is returned when Config.URL is empty.
var ErrNoURL = errors.New("postgres: DATABASE_URL is not set")

func (c Config) poolConfig() (*pgxpool.Config, error) {
	if c.URL == "" {
		return nil, ErrNoURL
	}
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pc.MaxConns = valueOr(c.MaxConns, defaultMaxConns)
	pc.MinConns = c.MinConns
	pc.MaxConnLifetime = valueOr(c.MaxConnLifetime, defaultMaxConnLifetime)
	pc.MaxConnIdleTime = valueOr(c.MaxConnIdleTime, defaultMaxConnIdleTime)
	pc.HealthCheckPeriod = time.Minute
	pc.ConnConfig.ConnectTimeout = valueOr(c.ConnectTimeout, defaultConnectTimeout)
	pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	return pc, nil
}

// Connect creates the pool and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pc.ConnConfig.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	applog.LogInfo(ctx, "postgres pool ready",
		zap.String("host", pc.ConnConfig.Host),
		zap.String("database", pc.ConnConfig.Database),
		zap.Int32("max_conns", pc.MaxConns),
		zap.Int32("min_conns", pc.MinConns),
	)
	return pool, nil
}

func valueOr[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
