package chatlog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-chat/internal/app/chatlog"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

func TestMain(m *testing.M) {
	observability.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	goleak.VerifyTestMain(m)
}

// durableStub is a DurableStore with injectable failures and an optional gate
// that holds writes until it is closed.
type durableStub struct {
	mu      sync.Mutex
	history []*domain.Message
	writes  []domain.Message
	deletes int

	loadErr  error
	writeErr error
	gate     chan struct{}
}

func (d *durableStub) LoadHistory(ctx context.Context, _ domain.SessionID, _ int) ([]*domain.Message, error) {
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	return d.history, nil
}

func (d *durableStub) WriteMessage(ctx context.Context, _ domain.SessionID, msg *domain.Message) error {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.writeErr != nil {
		return d.writeErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, *msg)
	return nil
}

func (d *durableStub) DeleteHistory(context.Context, domain.SessionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes++
	return d.writeErr
}

func (d *durableStub) snapshot() ([]domain.Message, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Message(nil), d.writes...), d.deletes
}

func closeStore(t *testing.T, s *chatlog.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func requireGreeting(t *testing.T, msgs []*domain.Message) {
	t.Helper()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAgent, msgs[0].Author)
	assert.Equal(t, chatlog.DefaultGreeting, msgs[0].Text)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestLoadNeverReturnsEmpty(t *testing.T) {
	cases := map[string]domain.DurableStore{
		"nil store":     nil,
		"load error":    &durableStub{loadErr: errors.New("unavailable")},
		"empty history": &durableStub{},
		"only blank rows": &durableStub{history: []*domain.Message{
			{ID: "x", Author: domain.RoleUser, Text: "   "},
		}},
	}

	for name, durable := range cases {
		t.Run(name, func(t *testing.T) {
			s := chatlog.New(durable, chatlog.Config{})
			defer closeStore(t, s)

			got := s.Load(context.Background(), "s1")
			requireGreeting(t, got)
			assert.Equal(t, got, s.Messages("s1"))
		})
	}
}

func TestLoadRestoresChronologicalOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	durable := &durableStub{history: []*domain.Message{
		{ID: "b", Author: domain.RoleAgent, Text: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "a", Author: domain.RoleUser, Text: "first", CreatedAt: base},
		{ID: "z", Author: "robot", Text: "dropped", CreatedAt: base},
	}}

	s := chatlog.New(durable, chatlog.Config{})
	defer closeStore(t, s)

	got := s.Load(context.Background(), "s1")
	require.Len(t, got, 2)
	assert.Equal(t, domain.MessageID("a"), got[0].ID)
	assert.Equal(t, domain.MessageID("b"), got[1].ID)
}

func TestAppendIsVisibleBeforeDurableWrite(t *testing.T) {
	durable := &durableStub{gate: make(chan struct{})}
	s := chatlog.New(durable, chatlog.Config{PersistTimeout: time.Second})
	defer closeStore(t, s)

	msg := s.Append("s1", domain.RoleUser, "hello")

	got := s.Messages("s1")
	require.Len(t, got, 1)
	assert.Same(t, msg, got[0])

	writes, _ := durable.snapshot()
	assert.Empty(t, writes)

	close(durable.gate)
	closeStore(t, s)

	writes, _ = durable.snapshot()
	require.Len(t, writes, 1)
	assert.Equal(t, msg.ID, writes[0].ID)
}

func TestAppendSurvivesDurableFailure(t *testing.T) {
	durable := &durableStub{writeErr: errors.New("disk full")}
	s := chatlog.New(durable, chatlog.Config{})

	s.Append("s1", domain.RoleUser, "one")
	s.Append("s1", domain.RoleAgent, "two")
	closeStore(t, s)

	got := s.Messages("s1")
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)
}

func TestAppendAssignsUniqueIDsAndMonotonicTimes(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := chatlog.New(nil, chatlog.Config{Now: func() time.Time { return fixed }})

	seen := map[domain.MessageID]bool{}
	var prev time.Time
	for i := 0; i < 50; i++ {
		m := s.Append("s1", domain.RoleUser, "x")
		assert.False(t, seen[m.ID])
		seen[m.ID] = true
		if i > 0 {
			assert.True(t, m.CreatedAt.After(prev))
		}
		prev = m.CreatedAt
	}
}

func TestClearReplacesLogAndDeletesHistory(t *testing.T) {
	durable := &durableStub{}
	s := chatlog.New(durable, chatlog.Config{Greeting: "fresh start"})

	s.Append("s1", domain.RoleUser, "one")
	s.Append("s1", domain.RoleAgent, "two")
	greeting := s.Clear("s1")
	closeStore(t, s)

	got := s.Messages("s1")
	require.Len(t, got, 1)
	assert.Same(t, greeting, got[0])
	assert.Equal(t, "fresh start", greeting.Text)

	_, deletes := durable.snapshot()
	assert.Equal(t, 1, deletes)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := chatlog.New(nil, chatlog.Config{})

	s.Append("a", domain.RoleUser, "for a")
	s.Append("b", domain.RoleUser, "for b")
	s.Clear("a")

	assert.Len(t, s.Messages("a"), 1)
	require.Len(t, s.Messages("b"), 1)
	assert.Equal(t, "for b", s.Messages("b")[0].Text)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := chatlog.New(nil, chatlog.Config{})
	s.Append("s1", domain.RoleUser, "x")

	got := s.Messages("s1")
	got[0] = nil

	assert.NotNil(t, s.Messages("s1")[0])
}

func TestReloadFromMemoryBackend(t *testing.T) {
	durable := memory.NewMessageStore()
	s := chatlog.New(durable, chatlog.Config{})
	s.Load(context.Background(), "s1")
	s.Append("s1", domain.RoleUser, "remember me")
	closeStore(t, s)

	fresh := chatlog.New(durable, chatlog.Config{})
	defer closeStore(t, fresh)

	got := fresh.Load(context.Background(), "s1")
	require.Len(t, got, 1)
	assert.Equal(t, "remember me", got[0].Text)
}

func TestCloseReportsPendingWrites(t *testing.T) {
	durable := &durableStub{gate: make(chan struct{})}
	s := chatlog.New(durable, chatlog.Config{PersistTimeout: time.Minute})
	s.Append("s1", domain.RoleUser, "slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Close(ctx))

	close(durable.gate)
	closeStore(t, s)
}

func TestPersistTimeoutBoundsWrites(t *testing.T) {
	durable := &durableStub{gate: make(chan struct{})}
	s := chatlog.New(durable, chatlog.Config{PersistTimeout: 10 * time.Millisecond})
	s.Append("s1", domain.RoleUser, "never lands")

	closeStore(t, s)

	writes, _ := durable.snapshot()
	assert.Empty(t, writes)
	assert.Len(t, s.Messages("s1"), 1)
}

func TestCloseDropsLaterReplication(t *testing.T) {
	durable := &durableStub{}
	s := chatlog.New(durable, chatlog.Config{})
	s.Append("s1", domain.RoleUser, "before close")
	closeStore(t, s)

	s.Append("s1", domain.RoleUser, "after close")
	s.Clear("s1")
	closeStore(t, s)

	writes, deletes := durable.snapshot()
	require.Len(t, writes, 1)
	assert.Equal(t, "before close", writes[0].Text)
	assert.Zero(t, deletes)
	assert.Len(t, s.Messages("s1"), 1)
}

func TestCloseRacesWithAppend(t *testing.T) {
	durable := memory.NewMessageStore()
	s := chatlog.New(durable, chatlog.Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append("s1", domain.RoleUser, "x")
			}
		}()
	}
	closeStore(t, s)
	wg.Wait()
	closeStore(t, s)

	assert.Len(t, s.Messages("s1"), 400)
}

func TestForgetReloadsFromDurable(t *testing.T) {
	durable := memory.NewMessageStore()
	s := chatlog.New(durable, chatlog.Config{})
	defer closeStore(t, s)

	s.Load(context.Background(), "s1")
	s.Append("s1", domain.RoleUser, "kept")
	require.Eventually(t, func() bool {
		got, err := durable.LoadHistory(context.Background(), "s1", 0)
		return err == nil && len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Forget("s1")
	assert.Empty(t, s.Messages("s1"))

	got := s.Load(context.Background(), "s1")
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}
