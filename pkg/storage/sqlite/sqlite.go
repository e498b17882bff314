// Package sqlite implements storage.Store on a local SQLite database.
//
// It uses the pure Go modernc.org/sqlite driver, so deployments that want
// durable state without running a Postgres server get it from a single file
// on disk. Schema migrations are embedded in the binary and applied on
// startup.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ohaddad/shopsnap/pkg/storage"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is a SQLite-backed storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database file at path and applies any pending
// migrations. The connection uses WAL journaling and enforces foreign keys.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: database path is empty")
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent updates.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite database: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return fmt.Errorf("migration %s has no version prefix", name)
		}

		var applied int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		script, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(script)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version, time.Now().UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}
	}

	return nil
}

// Language returns the stored language code for the user, or
// storage.ErrNotFound when the user has never set one.
func (s *Store) Language(ctx context.Context, userID int64) (string, error) {
	var lang string
	err := s.db.QueryRowContext(ctx,
		`SELECT lang FROM users WHERE user_id = ?`, userID).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying user language: %w", err)
	}
	return lang, nil
}

// SetLanguage stores the language code for the user, creating the row on
// first use.
func (s *Store) SetLanguage(ctx context.Context, userID int64, lang string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, lang, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET lang = excluded.lang, updated_at = excluded.updated_at`,
		userID, lang, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("storing user language: %w", err)
	}
	return nil
}

// RecordRecognition appends one recognition to the audit trail.
func (s *Store) RecordRecognition(ctx context.Context, rec *storage.Recognition) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recognitions (id, user_id, chat_id, outcome, text, provider, model, attempts, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.ChatID, rec.Outcome, rec.Text, rec.Provider, rec.Model,
		rec.Attempts, rec.ElapsedMS, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording recognition: %w", err)
	}
	return nil
}

// RecentRecognitions returns up to limit recognitions, most recent first.
// A limit of zero or less returns everything.
func (s *Store) RecentRecognitions(ctx context.Context, limit int) ([]*storage.Recognition, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, chat_id, outcome, text, provider, model, attempts, elapsed_ms, created_at
		 FROM recognitions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recognitions: %w", err)
	}
	defer rows.Close()

	var recs []*storage.Recognition
	for rows.Next() {
		var rec storage.Recognition
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ChatID, &rec.Outcome, &rec.Text,
			&rec.Provider, &rec.Model, &rec.Attempts, &rec.ElapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning recognition: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recognitions: %w", err)
	}
	return recs, nil
}

// HealthCheck verifies the database file is still reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
