package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables both binaries depend on. The advisory lock
// serializes bootstrap DDL across api/worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS subjects (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reference_images (
	id TEXT PRIMARY KEY,
	room_type TEXT NOT NULL,
	tags JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL DEFAULT 'unconfirmed',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS swipes (
	seq BIGSERIAL PRIMARY KEY,
	subject_id TEXT NOT NULL REFERENCES subjects(id),
	image_id TEXT NOT NULL REFERENCES reference_images(id),
	direction TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS style_profiles (
	subject_id TEXT PRIMARY KEY REFERENCES subjects(id),
	scores JSONB NOT NULL,
	dimension_confidence JSONB NOT NULL,
	overall_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	swipe_count BIGINT NOT NULL DEFAULT 0,
	completed_at TIMESTAMPTZ,
	last_updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_swipes_subject_seq ON swipes(subject_id, seq DESC);
CREATE INDEX IF NOT EXISTS idx_reference_images_status ON reference_images(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const pgForeignKeyViolation = "23503"

// mapReferenceError turns FK violations into the typed unknown-reference
// error so append-time validation surfaces as a client error, not a 500.
func mapReferenceError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return domain.WrapError(domain.ErrUnknownReference, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
