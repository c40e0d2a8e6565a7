package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricebot/internal/storage/stubs"
)

const adminChatID = int64(1000)

type sentText struct {
	chatID int64
	text   string
}

type fakeTransport struct {
	mu         sync.Mutex
	nextID     int
	forwards   []int
	sent       []sentText
	forwardErr error
	sendErr    error
}

func (f *fakeTransport) Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return 0, f.forwardErr
	}
	f.nextID++
	f.forwards = append(f.forwards, messageID)
	return 500 + f.nextID, nil
}

func (f *fakeTransport) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentText{chatID: chatID, text: text})
	return nil
}

func TestRelay_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	r := New(adminChatID, tr, zap.NewNop())

	relayID, err := r.Relay(ctx, 42, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Pending())
	assert.Equal(t, []int{7}, tr.forwards)

	userID, err := r.Resolve(ctx, relayID, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, []sentText{{chatID: 42, text: "hello"}}, tr.sent)
	assert.Equal(t, 0, r.Pending())

	_, err = r.Resolve(ctx, relayID, "hello again")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, tr.sent, 1)
}

func TestRelay_UnknownReference(t *testing.T) {
	r := New(adminChatID, &fakeTransport{}, zap.NewNop())

	_, err := r.Resolve(context.Background(), 12345, "answer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelay_MatchesByReference(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	r := New(adminChatID, tr, zap.NewNop())

	first, err := r.Relay(ctx, 1, 11, 100)
	require.NoError(t, err)
	second, err := r.Relay(ctx, 2, 22, 200)
	require.NoError(t, err)

	// answering out of order routes by reference, not arrival
	userID, err := r.Resolve(ctx, second, "to two")
	require.NoError(t, err)
	assert.Equal(t, int64(2), userID)

	userID, err = r.Resolve(ctx, first, "to one")
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)

	assert.Equal(t, []sentText{{22, "to two"}, {11, "to one"}}, tr.sent)
}

func TestRelay_ForwardFailure(t *testing.T) {
	tr := &fakeTransport{forwardErr: errors.New("chat not found")}
	r := New(adminChatID, tr, zap.NewNop())

	_, err := r.Relay(context.Background(), 1, 1, 1)
	assert.Error(t, err)
	assert.Equal(t, 0, r.Pending())
}

func TestRelay_DeliveryFailureKeepsQuestion(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	r := New(adminChatID, tr, zap.NewNop())

	relayID, err := r.Relay(ctx, 5, 5, 9)
	require.NoError(t, err)

	tr.sendErr = errors.New("bot was blocked by the user")
	_, err = r.Resolve(ctx, relayID, "answer")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, r.Pending())

	tr.sendErr = nil
	userID, err := r.Resolve(ctx, relayID, "answer")
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)
}

func TestRelay_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	db := stubs.NewMockDB()
	r := New(adminChatID, &fakeTransport{}, zap.NewNop(), WithTTL(time.Hour), WithClock(clock), WithPersister(db))

	relayID, err := r.Relay(ctx, 1, 1, 1)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	_, err = r.Resolve(ctx, relayID, "too late")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.Pending())

	persisted, err := db.LoadQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRelay_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	db := stubs.NewMockDB()
	tr := &fakeTransport{}

	r := New(adminChatID, tr, zap.NewNop(), WithPersister(db))
	relayID, err := r.Relay(ctx, 77, 77, 3)
	require.NoError(t, err)

	restarted := New(adminChatID, tr, zap.NewNop(), WithPersister(db))
	require.NoError(t, restarted.Load(ctx))
	assert.Equal(t, 1, restarted.Pending())

	userID, err := restarted.Resolve(ctx, relayID, "answer after restart")
	require.NoError(t, err)
	assert.Equal(t, int64(77), userID)

	persisted, err := db.LoadQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRelay_ConcurrentResolveDeliversOnce(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	r := New(adminChatID, tr, zap.NewNop())

	relayID, err := r.Relay(ctx, 1, 1, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	delivered := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(ctx, relayID, "answer"); err == nil {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, delivered)
	assert.Len(t, tr.sent, 1)
}
