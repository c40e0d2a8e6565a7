package storage

import (
	"context"
	"errors"
	"time"

	"pricebot/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("storage: not found")

// StateStore keeps the bot's live state across restarts
type StateStore interface {
	// Session operations
	SaveSession(ctx context.Context, s models.Session) error
	LoadSessions(ctx context.Context) ([]models.Session, error)

	// Pending question operations
	SaveQuestion(ctx context.Context, q models.PendingQuestion) error
	DeleteQuestion(ctx context.Context, relayMessageID int) error
	LoadQuestions(ctx context.Context) ([]models.PendingQuestion, error)

	// MarkUpdate records an inbound update id.
	// It returns false if the update was already seen.
	MarkUpdate(ctx context.Context, updateID int) (bool, error)

	// Lifecycle
	Close() error
}

// Journal is the append-only history of quotes and questions
type Journal interface {
	RecordQuote(ctx context.Context, rec models.QuoteRecord) error
	RecordQuestion(ctx context.Context, rec models.QuestionRecord) error

	// LastQuotes returns up to limit most recent quotes, newest first
	LastQuotes(ctx context.Context, limit int) ([]models.QuoteRecord, error)

	// GetStats aggregates everything recorded at or after since
	GetStats(ctx context.Context, since time.Time) (models.Stats, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
