package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ohaddad/shopsnap/pkg/storage"
)

func makeRecognition(id string, userID int64) *storage.Recognition {
	return &storage.Recognition{
		ID:        id,
		UserID:    userID,
		ChatID:    userID,
		Outcome:   "success",
		Text:      "Widget X",
		Provider:  "gemini",
		Model:     "gemini-2.0-flash",
		Attempts:  1,
		ElapsedMS: 1200,
	}
}

func TestLanguageRoundTrip(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	if err := s.SetLanguage(ctx, 42, "ar"); err != nil {
		t.Fatalf("SetLanguage failed: %v", err)
	}

	lang, err := s.Language(ctx, 42)
	if err != nil {
		t.Fatalf("Language failed: %v", err)
	}
	if lang != "ar" {
		t.Errorf("Language = %q, want ar", lang)
	}
}

func TestLanguageNotFound(t *testing.T) {
	s := New(0)

	_, err := s.Language(context.Background(), 99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLanguageOverwrite(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	s.SetLanguage(ctx, 42, "en")
	s.SetLanguage(ctx, 42, "ar")

	lang, err := s.Language(ctx, 42)
	if err != nil {
		t.Fatalf("Language failed: %v", err)
	}
	if lang != "ar" {
		t.Errorf("Language = %q, want the later value ar", lang)
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.RecordRecognition(ctx, makeRecognition(fmt.Sprintf("rec_%d", i), int64(i))); err != nil {
			t.Fatalf("RecordRecognition failed: %v", err)
		}
	}

	recent, err := s.RecentRecognitions(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRecognitions failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	// Most recent first.
	if recent[0].ID != "rec_4" || recent[2].ID != "rec_2" {
		t.Errorf("order = [%s %s %s], want newest first", recent[0].ID, recent[1].ID, recent[2].ID)
	}
	if recent[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted on record")
	}
}

func TestRecentUnlimited(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	s.RecordRecognition(ctx, makeRecognition("rec_a", 1))
	s.RecordRecognition(ctx, makeRecognition("rec_b", 2))

	recent, err := s.RecentRecognitions(ctx, 0)
	if err != nil {
		t.Fatalf("RecentRecognitions failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("len = %d, want all records for limit <= 0", len(recent))
	}
}

func TestTrailEviction(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.RecordRecognition(ctx, makeRecognition(fmt.Sprintf("rec_%d", i), int64(i)))
	}

	recent, err := s.RecentRecognitions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRecognitions failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want trail capped at 3", len(recent))
	}
	// Oldest two evicted.
	for _, r := range recent {
		if r.ID == "rec_0" || r.ID == "rec_1" {
			t.Errorf("record %s should have been evicted", r.ID)
		}
	}
}

func TestRecordCopiesInput(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	rec := makeRecognition("rec_mut", 1)
	s.RecordRecognition(ctx, rec)
	rec.Text = "changed afterwards"

	recent, _ := s.RecentRecognitions(ctx, 1)
	if recent[0].Text != "Widget X" {
		t.Errorf("stored record mutated through caller's pointer: %q", recent[0].Text)
	}
}

func TestHealthCheck(t *testing.T) {
	s := New(0)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
