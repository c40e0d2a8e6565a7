package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pricebot/internal/models"
	"pricebot/internal/storage"
)

var (
	_ storage.StateStore = (*MockDB)(nil)
	_ storage.Journal    = (*MockDB)(nil)
)

// MockDB is an in-memory implementation of both storage interfaces for testing
type MockDB struct {
	mu        sync.RWMutex
	sessions  map[int64]models.Session
	questions map[int]models.PendingQuestion
	updates   map[int]struct{}
	quotes    []models.QuoteRecord
	asked     []models.QuestionRecord
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		sessions:  make(map[int64]models.Session),
		questions: make(map[int]models.PendingQuestion),
		updates:   make(map[int]struct{}),
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// SaveSession stores a copy of the session
func (m *MockDB) SaveSession(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.PendingAmount != nil {
		amount := *s.PendingAmount
		s.PendingAmount = &amount
	}
	m.sessions[s.UserID] = s
	return nil
}

// LoadSessions returns all sessions ordered by user id
func (m *MockDB) LoadSessions(ctx context.Context) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UserID < sessions[j].UserID
	})
	return sessions, nil
}

// SaveQuestion stores a pending question
func (m *MockDB) SaveQuestion(ctx context.Context, q models.PendingQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.questions[q.RelayMessageID] = q
	return nil
}

// DeleteQuestion removes a pending question
func (m *MockDB) DeleteQuestion(ctx context.Context, relayMessageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.questions[relayMessageID]; !ok {
		return storage.ErrNotFound
	}
	delete(m.questions, relayMessageID)
	return nil
}

// LoadQuestions returns all pending questions ordered by relay message id
func (m *MockDB) LoadQuestions(ctx context.Context) ([]models.PendingQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	questions := make([]models.PendingQuestion, 0, len(m.questions))
	for _, q := range m.questions {
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].RelayMessageID < questions[j].RelayMessageID
	})
	return questions, nil
}

// MarkUpdate returns true the first time an update id is seen
func (m *MockDB) MarkUpdate(ctx context.Context, updateID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.updates[updateID]; ok {
		return false, nil
	}
	m.updates[updateID] = struct{}{}
	return true, nil
}

// RecordQuote appends a quote to the journal
func (m *MockDB) RecordQuote(ctx context.Context, rec models.QuoteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quotes = append(m.quotes, rec)
	return nil
}

// RecordQuestion appends a question to the journal
func (m *MockDB) RecordQuestion(ctx context.Context, rec models.QuestionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.asked = append(m.asked, rec)
	return nil
}

// LastQuotes returns the last N quotes, newest first
func (m *MockDB) LastQuotes(ctx context.Context, limit int) ([]models.QuoteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]models.QuoteRecord, len(m.quotes))
	copy(sorted, m.quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if limit < 0 {
		limit = 0
	}
	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit], nil
}

// GetStats counts journal entries created at or after since
func (m *MockDB) GetStats(ctx context.Context, since time.Time) (models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := models.Stats{TotalSum: decimal.Zero}
	for _, q := range m.quotes {
		if q.CreatedAt.Before(since) {
			continue
		}
		stats.Quotes++
		stats.TotalSum = stats.TotalSum.Add(q.Total)
	}
	for _, q := range m.asked {
		if q.CreatedAt.Before(since) {
			continue
		}
		stats.Questions++
	}
	return stats, nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
