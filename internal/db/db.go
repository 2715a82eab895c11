// Package db provides PostgreSQL-backed repository implementations for
// LaborCurve. All repositories accept a DBTX interface that is satisfied by
// both *pgxpool.Pool (for normal queries) and pgx.Tx (for transactional
// execution), enabling clean transaction support.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// Repositories accept this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner starts a transaction. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories bundles every repository over one connection so a caller can
// hand the whole set to code running inside a transaction.
type Repositories struct {
	Encounters *EncounterRepository
	Events     *EventRepository
	Settings   *SettingsRepository
	Archives   *ArchiveRepository
}

// NewRepositories builds the repository set over db.
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Encounters: NewEncounterRepository(db),
		Events:     NewEventRepository(db),
		Settings:   NewSettingsRepository(db),
		Archives:   NewArchiveRepository(db),
	}
}

// Store runs work inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
type Store struct {
	pool Beginner
}

// NewStore creates a Store over the given pool.
func NewStore(pool Beginner) *Store {
	return &Store{pool: pool}
}

// InTx executes fn with repositories bound to a fresh transaction.
func (s *Store) InTx(ctx context.Context, fn func(r *Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

// nilIfEmpty returns nil for an empty string so nullable TEXT columns stay
// NULL.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nilIfZeroTime returns nil for the zero time so COALESCE($n, NOW()) can
// fill in the database clock.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// derefString returns "" for a NULL column.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint
// violation (error code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isForeignKeyViolation checks for error code 23503, raised when an event
// references an encounter that does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
