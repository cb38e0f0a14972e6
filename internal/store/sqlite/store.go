// Package sqlite is the embedded single-file request store, used for
// self-hosted single-binary deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/store/sqlite/migrations"
)

type Store struct {
	db        *sql.DB
	requests  *HelpRequestRepo
	knowledge *KnowledgeRepo
	rooms     *RoomRepo
	bookings  *BookingRepo
}

// New opens (creating if needed) the database file at path and applies migrations.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open: %w", err)
	}

	// One writer at a time; conditional updates stay serialisable.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: ping: %w", err)
	}

	if err = runMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return &Store{
		db:        db,
		requests:  &HelpRequestRepo{db: db},
		knowledge: &KnowledgeRepo{db: db},
		rooms:     &RoomRepo{db: db},
		bookings:  &BookingRepo{db: db},
	}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite.Store.Close: %w", err)
	}
	return nil
}

func (s *Store) HelpRequests() domain.HelpRequestRepository { return s.requests }
func (s *Store) Knowledge() domain.KnowledgeRepository      { return s.knowledge }
func (s *Store) Rooms() domain.RoomRepository               { return s.rooms }
func (s *Store) Bookings() domain.BookingRepository         { return s.bookings }

func runMigrations(ctx context.Context, db *sql.DB, migrationsFS fs.FS) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("migrate: read dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		var exists int
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("migrate: check %s: %w", name, err)
		}
		if exists > 0 {
			continue
		}

		content, readErr := fs.ReadFile(migrationsFS, name)
		if readErr != nil {
			return fmt.Errorf("migrate: read %s: %w", name, readErr)
		}

		log.Debug().Str("file", name).Msg("running sqlite migration")
		if _, err = db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("migrate: execute %s: %w", name, err)
		}
		if _, err = db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, name); err != nil {
			return fmt.Errorf("migrate: record %s: %w", name, err)
		}
	}

	return nil
}
