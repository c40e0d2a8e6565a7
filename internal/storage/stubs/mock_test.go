package stubs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricebot/internal/models"
	"pricebot/internal/storage"
)

func TestMockDB_SessionCopy(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	amount := decimal.NewFromInt(150)
	sess := models.Session{UserID: 1, Mode: models.ModeAwaitingItemCount, PendingAmount: &amount}
	if err := db.SaveSession(ctx, sess); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// Mutating the caller's value must not leak into the store
	amount = decimal.NewFromInt(1)

	sessions, err := db.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("Failed to load sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if !sessions[0].PendingAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected pending amount 150, got %s", sessions[0].PendingAmount)
	}
}

func TestMockDB_Questions(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	for _, id := range []int{30, 10, 20} {
		if err := db.SaveQuestion(ctx, models.PendingQuestion{RelayMessageID: id, OriginUserID: int64(id)}); err != nil {
			t.Fatalf("Failed to save question: %v", err)
		}
	}

	questions, err := db.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("Failed to load questions: %v", err)
	}
	if len(questions) != 3 || questions[0].RelayMessageID != 10 || questions[2].RelayMessageID != 30 {
		t.Errorf("Unexpected questions order: %+v", questions)
	}

	if err := db.DeleteQuestion(ctx, 20); err != nil {
		t.Fatalf("Failed to delete question: %v", err)
	}
	if err := db.DeleteQuestion(ctx, 20); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMockDB_MarkUpdate(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	fresh, err := db.MarkUpdate(ctx, 100)
	if err != nil || !fresh {
		t.Fatalf("Expected first mark to be fresh, got %v, %v", fresh, err)
	}

	fresh, err = db.MarkUpdate(ctx, 100)
	if err != nil || fresh {
		t.Errorf("Expected duplicate update to be rejected, got %v, %v", fresh, err)
	}
}

func TestMockDB_Journal(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := db.RecordQuote(ctx, models.QuoteRecord{
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
			UserID:    int64(i),
			Total:     decimal.NewFromInt(int64(100 * (i + 1))),
		})
		if err != nil {
			t.Fatalf("Failed to record quote: %v", err)
		}
	}
	if err := db.RecordQuestion(ctx, models.QuestionRecord{CreatedAt: base, UserID: 1}); err != nil {
		t.Fatalf("Failed to record question: %v", err)
	}

	last, err := db.LastQuotes(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get last quotes: %v", err)
	}
	if len(last) != 2 || last[0].UserID != 4 || last[1].UserID != 3 {
		t.Errorf("Unexpected last quotes: %+v", last)
	}

	all, _ := db.LastQuotes(ctx, 100)
	if len(all) != 5 {
		t.Errorf("Expected 5 quotes, got %d", len(all))
	}

	none, err := db.LastQuotes(ctx, -1)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no quotes for a negative limit, got %d, %v", len(none), err)
	}

	stats, err := db.GetStats(ctx, base.Add(3*24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Quotes != 2 {
		t.Errorf("Expected 2 quotes, got %d", stats.Quotes)
	}
	if stats.Questions != 0 {
		t.Errorf("Expected 0 questions, got %d", stats.Questions)
	}
	if !stats.TotalSum.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected total 900, got %s", stats.TotalSum)
	}
}
