// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and is the backend of choice when
// several bot instances share one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ohaddad/shopsnap/pkg/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Language returns the stored language code for the user, or
// storage.ErrNotFound when the user has never set one.
func (s *Store) Language(ctx context.Context, userID int64) (string, error) {
	var lang string
	err := s.pool.QueryRow(ctx,
		"SELECT lang FROM users WHERE user_id = $1", userID).Scan(&lang)
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, lang, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET lang = EXCLUDED.lang, updated_at = EXCLUDED.updated_at
	`, userID, lang, time.Now())
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

	_, err := s.pool.Exec(ctx, `
		INSERT INTO recognitions (
			id, user_id, chat_id, outcome, text, provider, model,
			attempts, elapsed_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id, rec.UserID, rec.ChatID, rec.Outcome, rec.Text, rec.Provider, rec.Model,
		rec.Attempts, rec.ElapsedMS, createdAt,
	)
	if err != nil {
		return fmt.Errorf("recording recognition: %w", err)
	}
	return nil
}

// RecentRecognitions returns up to limit recognitions, most recent first.
// A limit of zero or less returns everything.
func (s *Store) RecentRecognitions(ctx context.Context, limit int) ([]*storage.Recognition, error) {
	query := `
		SELECT id, user_id, chat_id, outcome, text, provider, model,
		       attempts, elapsed_ms, created_at
		FROM recognitions
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recognitions: %w", err)
	}
	defer rows.Close()

	var recs []*storage.Recognition
	for rows.Next() {
		var rec storage.Recognition
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ChatID, &rec.Outcome, &rec.Text,
			&rec.Provider, &rec.Model, &rec.Attempts, &rec.ElapsedMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning recognition: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recognitions: %w", err)
	}
	return recs, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
