package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode is the input the bot currently expects from a user
type Mode string

const (
	ModeIdle              Mode = "idle"
	ModeAwaitingAmount    Mode = "awaiting_amount"
	ModeAwaitingItemCount Mode = "awaiting_item_count"
	ModeAwaitingQuestion  Mode = "awaiting_question"
)

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	switch m {
	case ModeIdle, ModeAwaitingAmount, ModeAwaitingItemCount, ModeAwaitingQuestion:
		return true
	}
	return false
}

// Session is the per-user conversation state.
// PendingAmount is set only while Mode is ModeAwaitingItemCount.
type Session struct {
	UserID         int64            `json:"user_id"`
	Mode           Mode             `json:"mode"`
	PendingAmount  *decimal.Decimal `json:"pending_amount,omitempty"`
	LastActivityAt time.Time        `json:"last_activity_at"`
}

// PendingQuestion links a question forwarded to the admin chat with the user who asked it
type PendingQuestion struct {
	RelayMessageID int       `json:"relay_message_id"`
	OriginUserID   int64     `json:"origin_user_id"`
	OriginChatID   int64     `json:"origin_chat_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuoteRecord is a journal entry for a quote sent to a user
type QuoteRecord struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    int64
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	Total     decimal.Decimal
	ItemCount int // 0 when the quote was produced without an item count
}

// QuestionRecord is a journal entry for a question relayed to the admin
type QuestionRecord struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	UserID         int64
	RelayMessageID int
}

// Stats aggregates the journal over a period
type Stats struct {
	Quotes    int
	Questions int
	TotalSum  decimal.Decimal
}
