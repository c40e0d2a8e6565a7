package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricebot/internal/models"
	"pricebot/internal/storage"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	amount := decimal.RequireFromString("149.99")
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSession(ctx, models.Session{UserID: 2, Mode: models.ModeAwaitingQuestion, LastActivityAt: at}))
	require.NoError(t, s.SaveSession(ctx, models.Session{UserID: 1, Mode: models.ModeAwaitingItemCount, PendingAmount: &amount, LastActivityAt: at}))
	// overwrite
	require.NoError(t, s.SaveSession(ctx, models.Session{UserID: 2, Mode: models.ModeIdle, LastActivityAt: at}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	sessions, err := reopened.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, int64(1), sessions[0].UserID)
	assert.Equal(t, models.ModeAwaitingItemCount, sessions[0].Mode)
	require.NotNil(t, sessions[0].PendingAmount)
	assert.True(t, amount.Equal(*sessions[0].PendingAmount))
	assert.True(t, at.Equal(sessions[0].LastActivityAt))

	assert.Equal(t, int64(2), sessions[1].UserID)
	assert.Equal(t, models.ModeIdle, sessions[1].Mode)
	assert.Nil(t, sessions[1].PendingAmount)
}

func TestStore_Questions(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	q := models.PendingQuestion{RelayMessageID: 501, OriginUserID: 42, OriginChatID: 42, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveQuestion(ctx, q))

	questions, err := s.LoadQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, q.RelayMessageID, questions[0].RelayMessageID)
	assert.Equal(t, q.OriginUserID, questions[0].OriginUserID)

	require.NoError(t, s.DeleteQuestion(ctx, 501))
	assert.ErrorIs(t, s.DeleteQuestion(ctx, 501), storage.ErrNotFound)

	questions, err = s.LoadQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestStore_MarkUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	fresh, err := s.MarkUpdate(ctx, 10)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.MarkUpdate(ctx, 10)
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = s.MarkUpdate(ctx, 11)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestStore_MarkUpdateForgetsOldIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	_, err := s.MarkUpdate(ctx, 1)
	require.NoError(t, err)
	_, err = s.MarkUpdate(ctx, 2+MaxTrackedUpdates)
	require.NoError(t, err)

	// id 1 fell out of the window, so it is accepted again
	fresh, err := s.MarkUpdate(ctx, 1)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.MarkUpdate(ctx, 2+MaxTrackedUpdates)
	require.NoError(t, err)
	assert.False(t, fresh)
}
