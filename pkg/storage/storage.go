package storage

import (
	"context"
	"time"
)

// UserPrefs holds a Telegram user's persisted preferences.
type UserPrefs struct {
	UserID    int64
	Language  string
	UpdatedAt time.Time
}

// Recognition is one finished pipeline run, kept as an audit trail.
type Recognition struct {
	ID        string
	UserID    int64
	ChatID    int64
	Outcome   string
	Text      string
	Provider  string
	Model     string
	Attempts  int
	ElapsedMS int64
	CreatedAt time.Time
}

// UserStore persists per-user preferences.
type UserStore interface {
	// Language returns the user's UI language, or ErrNotFound when the
	// user has never been seen.
	Language(ctx context.Context, userID int64) (string, error)

	// SetLanguage records the user's UI language, inserting the user on
	// first contact.
	SetLanguage(ctx context.Context, userID int64, lang string) error
}

// RecognitionStore keeps the recognition audit trail.
type RecognitionStore interface {
	// RecordRecognition appends one finished recognition.
	RecordRecognition(ctx context.Context, rec *Recognition) error

	// RecentRecognitions returns the newest records, most recent first.
	RecentRecognitions(ctx context.Context, limit int) ([]*Recognition, error)
}

// Store is the full persistence surface of the bot.
type Store interface {
	UserStore
	RecognitionStore

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
