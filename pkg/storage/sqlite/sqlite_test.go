package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ohaddad/shopsnap/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shopsnap.db")
	s, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(context.Background(), "")
	if err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsnap.db")
	ctx := context.Background()

	s1, err := New(ctx, path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := s1.SetLanguage(ctx, 1, "ar"); err != nil {
		t.Fatalf("SetLanguage failed: %v", err)
	}
	s1.Close()

	// Reopening the same file replays migrations against an up-to-date
	// schema and must not disturb existing data.
	s2, err := New(ctx, path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer s2.Close()

	lang, err := s2.Language(ctx, 1)
	if err != nil {
		t.Fatalf("Language failed after reopen: %v", err)
	}
	if lang != "ar" {
		t.Errorf("Language = %q, want ar", lang)
	}
}

func TestLanguageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetLanguage(ctx, 42, "en"); err != nil {
		t.Fatalf("SetLanguage failed: %v", err)
	}
	if err := s.SetLanguage(ctx, 42, "ar"); err != nil {
		t.Fatalf("second SetLanguage failed: %v", err)
	}

	lang, err := s.Language(ctx, 42)
	if err != nil {
		t.Fatalf("Language failed: %v", err)
	}
	if lang != "ar" {
		t.Errorf("Language = %q, want the upserted value ar", lang)
	}
}

func TestLanguageNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Language(context.Background(), 12345)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecognitionTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 4; i++ {
		rec := &storage.Recognition{
			ID:        fmt.Sprintf("rec_%d", i),
			UserID:    int64(100 + i),
			ChatID:    int64(200 + i),
			Outcome:   "success",
			Text:      "Widget X",
			Provider:  "gemini",
			Model:     "gemini-2.0-flash",
			Attempts:  1,
			ElapsedMS: 1500,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.RecordRecognition(ctx, rec); err != nil {
			t.Fatalf("RecordRecognition failed: %v", err)
		}
	}

	recent, err := s.RecentRecognitions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRecognitions failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].ID != "rec_3" || recent[1].ID != "rec_2" {
		t.Errorf("order = [%s %s], want newest first", recent[0].ID, recent[1].ID)
	}
	if !recent[0].CreatedAt.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", recent[0].CreatedAt, base.Add(3*time.Minute))
	}
	if recent[0].Provider != "gemini" || recent[0].Attempts != 1 {
		t.Errorf("fields lost on round trip: %+v", recent[0])
	}
}

func TestRecordDefaultsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &storage.Recognition{UserID: 7, ChatID: 7, Outcome: "exhausted"}
	if err := s.RecordRecognition(ctx, rec); err != nil {
		t.Fatalf("RecordRecognition failed: %v", err)
	}

	recent, err := s.RecentRecognitions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRecognitions failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("len = %d, want 1", len(recent))
	}
	if recent[0].ID == "" {
		t.Error("ID not generated")
	}
	if recent[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}

func TestRecentUnlimited(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := &storage.Recognition{UserID: int64(i), ChatID: int64(i), Outcome: "success"}
		if err := s.RecordRecognition(ctx, rec); err != nil {
			t.Fatalf("RecordRecognition failed: %v", err)
		}
	}

	recent, err := s.RecentRecognitions(ctx, 0)
	if err != nil {
		t.Fatalf("RecentRecognitions failed: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("len = %d, want all rows for limit <= 0", len(recent))
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestStore(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
