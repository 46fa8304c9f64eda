package storage

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"
)

// Store wraps the relational database behind typed queries. All multi-row
// writes go through Transactional so a reader never observes a partially
// committed registration.
type Store struct {
	db *dbx.DB
}

// Open opens (or creates) the sqlite database at dsn and applies the
// schema.
func Open(dsn string) (*Store, error) {
	db, err := dbx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection. The caller is responsible for the
// schema.
func New(db *dbx.DB) *Store { return &Store{db: db} }

// DB exposes the underlying connection for ad-hoc queries.
func (s *Store) DB() *dbx.DB { return s.db }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks database liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.DB().PingContext(ctx)
}

// Transactional runs f inside a single transaction, rolling back on error.
func (s *Store) Transactional(f func(tx dbx.Builder) error) error {
	return s.db.Transactional(func(tx *dbx.Tx) error {
		return f(tx)
	})
}
