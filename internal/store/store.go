// Package store implements C1, the Review Store: durable Postgres-backed
// storage of Review rows and the derived OfferRating aggregate, with the
// transactional aggregate-maintenance algorithm from §4.1.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// execQuerier is satisfied by both *sql.DB and *sql.Tx, the way the
// teacher's dialect/sql.Conn wraps either behind one interface.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the Postgres-backed implementation of review.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config controls the pool settings from the "database.pool.*" config
// surface in §6.
type Config struct {
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdle    time.Duration
	ConnMaxLife    time.Duration
	AcquireTimeout time.Duration
}

// Open connects to Postgres and configures the pool per Config.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdle > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdle)
	}
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}
	return &Store{db: db, logger: logger}, nil
}

// New wraps an already-open *sql.DB, for tests that inject go-sqlmock.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks database reachability, for the /readyz endpoint (C7).
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error including a panic, matching the "commit fully or not
// at all" cancellation semantics of §5.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("store.withTx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = classify("store.withTx", tx.Commit())
	}()
	err = fn(tx)
	return err
}
