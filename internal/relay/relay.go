// Package relay forwards user questions to the admin chat and routes the admin's reply back.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pricebot/internal/models"
)

// ErrNotFound is returned by Resolve when the reply does not reference a tracked question
var ErrNotFound = errors.New("relay: question not found")

// DefaultTTL bounds how long an unanswered question stays answerable
const DefaultTTL = 7 * 24 * time.Hour

// Transport delivers messages on behalf of the relay
type Transport interface {
	// Forward copies message messageID from chat fromChatID into chat toChatID
	// and returns the id of the new message.
	Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
	SendText(ctx context.Context, chatID int64, text string) error
}

// Persister stores pending questions across restarts
type Persister interface {
	SaveQuestion(ctx context.Context, q models.PendingQuestion) error
	DeleteQuestion(ctx context.Context, relayMessageID int) error
	LoadQuestions(ctx context.Context) ([]models.PendingQuestion, error)
}

// Relay owns the table of questions awaiting an answer
type Relay struct {
	mu          sync.Mutex
	pending     map[int]models.PendingQuestion
	adminChatID int64
	transport   Transport
	persist     Persister
	ttl         time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Relay
type Option func(*Relay)

// WithTTL sets how long unanswered questions are kept. Zero keeps them forever.
func WithTTL(d time.Duration) Option {
	return func(r *Relay) { r.ttl = d }
}

// WithPersister enables write-through persistence
func WithPersister(p Persister) Option {
	return func(r *Relay) { r.persist = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// New creates a relay that forwards questions to adminChatID
func New(adminChatID int64, transport Transport, logger *zap.Logger, opts ...Option) *Relay {
	r := &Relay{
		pending:     make(map[int]models.PendingQuestion),
		adminChatID: adminChatID,
		transport:   transport,
		ttl:         DefaultTTL,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load restores persisted questions. It is a no-op without a persister.
func (r *Relay) Load(ctx context.Context) error {
	if r.persist == nil {
		return nil
	}

	questions, err := r.persist.LoadQuestions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending questions: %w", err)
	}

	r.mu.Lock()
	for _, q := range questions {
		r.pending[q.RelayMessageID] = q
	}
	r.mu.Unlock()

	r.prune(ctx)
	r.logger.Info("Pending questions loaded", zap.Int("count", r.Pending()))
	return nil
}

// Relay forwards the user's message to the admin chat and tracks it until answered
func (r *Relay) Relay(ctx context.Context, originUserID, originChatID int64, messageID int) (int, error) {
	r.prune(ctx)

	relayMessageID, err := r.transport.Forward(ctx, r.adminChatID, originChatID, messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to forward question: %w", err)
	}

	q := models.PendingQuestion{
		RelayMessageID: relayMessageID,
		OriginUserID:   originUserID,
		OriginChatID:   originChatID,
		CreatedAt:      r.now(),
	}

	r.mu.Lock()
	r.pending[relayMessageID] = q
	r.mu.Unlock()

	if r.persist != nil {
		if err := r.persist.SaveQuestion(ctx, q); err != nil {
			r.logger.Error("Failed to persist pending question",
				zap.Error(err),
				zap.Int("relay_message_id", relayMessageID),
			)
		}
	}

	r.logger.Info("Question relayed",
		zap.Int64("user_id", originUserID),
		zap.Int("relay_message_id", relayMessageID),
	)
	return relayMessageID, nil
}

// Resolve delivers answerText to whoever asked the question behind relayMessageID
// and forgets the question. If delivery fails the question stays pending.
func (r *Relay) Resolve(ctx context.Context, relayMessageID int, answerText string) (int64, error) {
	r.prune(ctx)

	r.mu.Lock()
	q, ok := r.pending[relayMessageID]
	if ok {
		delete(r.pending, relayMessageID)
	}
	r.mu.Unlock()

	if !ok {
		return 0, ErrNotFound
	}

	if err := r.transport.SendText(ctx, q.OriginChatID, answerText); err != nil {
		r.mu.Lock()
		if _, taken := r.pending[relayMessageID]; !taken {
			r.pending[relayMessageID] = q
		}
		r.mu.Unlock()
		return 0, fmt.Errorf("failed to deliver answer: %w", err)
	}

	if r.persist != nil {
		if err := r.persist.DeleteQuestion(ctx, relayMessageID); err != nil {
			r.logger.Error("Failed to delete answered question",
				zap.Error(err),
				zap.Int("relay_message_id", relayMessageID),
			)
		}
	}

	r.logger.Info("Answer delivered",
		zap.Int64("user_id", q.OriginUserID),
		zap.Int("relay_message_id", relayMessageID),
	)
	return q.OriginUserID, nil
}

// Pending returns the number of unanswered questions
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// prune drops questions older than the TTL
func (r *Relay) prune(ctx context.Context) {
	if r.ttl <= 0 {
		return
	}

	cutoff := r.now().Add(-r.ttl)
	var expired []int

	r.mu.Lock()
	for id, q := range r.pending {
		if q.CreatedAt.Before(cutoff) {
			delete(r.pending, id)
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		r.logger.Info("Pending question expired", zap.Int("relay_message_id", id))
		if r.persist == nil {
			continue
		}
		if err := r.persist.DeleteQuestion(ctx, id); err != nil {
			r.logger.Error("Failed to delete expired question", zap.Error(err), zap.Int("relay_message_id", id))
		}
	}
}
