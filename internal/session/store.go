// Package session keeps the per-user conversation state.
//
// Sessions expire lazily: a session idle for longer than the timeout is reset
// to idle the next time it is read. There is no background sweep.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricebot/internal/models"
)

// DefaultTimeout is the inactivity window after which a session is treated as idle
const DefaultTimeout = 10 * time.Minute

// Persister stores sessions across restarts
type Persister interface {
	SaveSession(ctx context.Context, s models.Session) error
	LoadSessions(ctx context.Context) ([]models.Session, error)
}

// Store owns the session map. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
	timeout  time.Duration
	now      func() time.Time
	persist  Persister
	logger   *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithTimeout sets the inactivity window
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPersister enables write-through persistence
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[int64]*models.Session),
		timeout:  DefaultTimeout,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores persisted sessions. It is a no-op without a persister.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	sessions, err := s.persist.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range sessions {
		sess := sessions[i]
		if !sess.Mode.Valid() {
			sess.Mode = models.ModeIdle
		}
		if sess.Mode != models.ModeAwaitingItemCount {
			sess.PendingAmount = nil
		}
		s.sessions[sess.UserID] = &sess
	}

	s.logger.Info("Sessions loaded", zap.Int("count", len(sessions)))
	return nil
}

// Get returns a snapshot of the user's session, creating an idle one if absent
func (s *Store) Get(userID int64) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, changed := s.lookup(userID)
	if changed {
		s.save(sess)
	}
	return snapshot(sess)
}

// Touch is Get followed by stamping the last activity time.
// It is called once per inbound event before the event is processed.
func (s *Store) Touch(userID int64) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.lookup(userID)
	sess.LastActivityAt = s.now()
	s.save(sess)
	return snapshot(sess)
}

// SetMode switches the user's mode. The pending amount is kept only for ModeAwaitingItemCount.
func (s *Store) SetMode(userID int64, mode models.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.lookup(userID)
	sess.Mode = mode
	if mode != models.ModeAwaitingItemCount {
		sess.PendingAmount = nil
	}
	s.save(sess)
}

// SetPendingAmount stores the first half of a two-step quote and moves the user to ModeAwaitingItemCount
func (s *Store) SetPendingAmount(userID int64, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.lookup(userID)
	sess.Mode = models.ModeAwaitingItemCount
	sess.PendingAmount = &amount
	s.save(sess)
}

// Clear resets the user to idle
func (s *Store) Clear(userID int64) {
	s.SetMode(userID, models.ModeIdle)
}

// Len returns the number of known sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookup returns the live session, creating it or expiring it as needed.
// The bool reports whether the stored session was modified. Callers hold s.mu.
func (s *Store) lookup(userID int64) (*models.Session, bool) {
	now := s.now()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &models.Session{
			UserID:         userID,
			Mode:           models.ModeIdle,
			LastActivityAt: now,
		}
		s.sessions[userID] = sess
		return sess, true
	}

	if sess.Mode != models.ModeIdle && now.Sub(sess.LastActivityAt) > s.timeout {
		s.logger.Debug("Session expired",
			zap.Int64("user_id", userID),
			zap.String("mode", string(sess.Mode)),
			zap.Time("last_activity_at", sess.LastActivityAt),
		)
		sess.Mode = models.ModeIdle
		sess.PendingAmount = nil
		return sess, true
	}

	return sess, false
}

// save writes the session through to the persister. Callers hold s.mu.
func (s *Store) save(sess *models.Session) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveSession(context.Background(), snapshot(sess)); err != nil {
		s.logger.Error("Failed to persist session",
			zap.Error(err),
			zap.Int64("user_id", sess.UserID),
		)
	}
}

func snapshot(sess *models.Session) models.Session {
	out := *sess
	if sess.PendingAmount != nil {
		amount := *sess.PendingAmount
		out.PendingAmount = &amount
	}
	return out
}
