// Package memory provides an in-memory storage.Store for tests and
// throwaway deployments. State is lost when the process restarts; the
// recognition trail keeps only the newest entries.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ohaddad/shopsnap/pkg/storage"
)

// Store is an in-memory storage.Store.
type Store struct {
	mu           sync.RWMutex
	languages    map[int64]string
	recognitions []*storage.Recognition // oldest first
	maxTrail     int
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an in-memory store keeping at most maxTrail recognition
// records. maxTrail <= 0 selects the default of 1000.
func New(maxTrail int) *Store {
	if maxTrail <= 0 {
		maxTrail = 1000
	}
	return &Store{
		languages: make(map[int64]string),
		maxTrail:  maxTrail,
	}
}

// Language returns the stored UI language for the user.
func (s *Store) Language(ctx context.Context, userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lang, ok := s.languages[userID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return lang, nil
}

// SetLanguage records the user's UI language.
func (s *Store) SetLanguage(ctx context.Context, userID int64, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.languages[userID] = lang
	return nil
}

// RecordRecognition appends a recognition, evicting the oldest records
// when the trail is full.
func (s *Store) RecordRecognition(ctx context.Context, rec *storage.Recognition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.recognitions = append(s.recognitions, &r)
	if len(s.recognitions) > s.maxTrail {
		s.recognitions = s.recognitions[len(s.recognitions)-s.maxTrail:]
	}
	return nil
}

// RecentRecognitions returns the newest records, most recent first.
func (s *Store) RecentRecognitions(ctx context.Context, limit int) ([]*storage.Recognition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.recognitions) {
		limit = len(s.recognitions)
	}
	out := make([]*storage.Recognition, 0, limit)
	for i := len(s.recognitions) - 1; i >= 0 && len(out) < limit; i-- {
		r := *s.recognitions[i]
		out = append(out, &r)
	}
	return out, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
