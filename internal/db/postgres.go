package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// The unique constraint on (lesson_date, start_time, duration_minutes) is the
// authoritative guard against double-booking; everything above it (pre-checks,
// slot locks) is a fast path only.
const appointmentsSchema = `
CREATE TABLE IF NOT EXISTS appointments (
	id               bigserial PRIMARY KEY,
	name             text NOT NULL,
	email            text,
	phone            text,
	lesson_date      text NOT NULL,
	start_time       text NOT NULL,
	duration_minutes integer NOT NULL,
	lesson_type      text NOT NULL,
	created_at       timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT appointments_slot_key UNIQUE (lesson_date, start_time, duration_minutes)
)`

// EnsureSchema creates the appointments table if it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, appointmentsSchema); err != nil {
		return fmt.Errorf("ensure appointments schema: %w", err)
	}
	return nil
}
