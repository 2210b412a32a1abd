package queue

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"poddigest/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db             *sql.DB
	backoffBase    int
	backoffMax     int
	defaultMaxTry  int
}

// Open initializes or connects to the queue database and applies migrations.
// It shares the repository's database file by default, matching the
// single-binary deployment described in SPEC_FULL.md §3.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return openWithDB(db, cfg)
}

// OpenSharedDB wraps an already-open *sql.DB (typically the repository's
// connection) so the queue broker and repository share one database file.
func OpenSharedDB(db *sql.DB, cfg *config.Config) (*Store, error) {
	return openWithDB(db, cfg)
}

func openWithDB(db *sql.DB, cfg *config.Config) (*Store, error) {
	store := &Store{
		db:            db,
		backoffBase:   cfg.Workflow.BackoffBaseSeconds,
		backoffMax:    cfg.Workflow.BackoffMaxSeconds,
		defaultMaxTry: cfg.Workflow.MaxAttempts,
	}
	if store.backoffBase <= 0 {
		store.backoffBase = 2
	}
	if store.backoffMax <= 0 {
		store.backoffMax = 300
	}
	if store.defaultMaxTry <= 0 {
		store.defaultMaxTry = 5
	}
	if err := store.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
