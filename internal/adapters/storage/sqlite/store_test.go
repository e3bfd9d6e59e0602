package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-chat/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "farum.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func message(sessionID domain.SessionID, i int, at time.Time) *domain.Message {
	author := domain.RoleUser
	if i%2 == 1 {
		author = domain.RoleAgent
	}
	return &domain.Message{
		ID:        domain.MessageID(fmt.Sprintf("%s-%02d", sessionID, i)),
		SessionID: sessionID,
		Author:    author,
		Text:      fmt.Sprint("message ", i),
		CreatedAt: at,
	}
}

func TestNewRequiresPath(t *testing.T) {
	_, err := sqlite.New("")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestLoadHistoryOrderAndLimit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 8, 0, 0, 123, time.UTC)

	// written out of order, as concurrent replication may do
	for _, i := range []int{3, 0, 4, 1, 2} {
		require.NoError(t, s.WriteMessage(ctx, "s1", message("s1", i, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, s.WriteMessage(ctx, "s2", message("s2", 0, base)))

	all, err := s.LoadHistory(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, m := range all {
		assert.Equal(t, fmt.Sprint("message ", i), m.Text)
		assert.True(t, m.CreatedAt.Equal(base.Add(time.Duration(i)*time.Second)))
	}
	assert.Equal(t, domain.RoleAgent, all[1].Author)

	last, err := s.LoadHistory(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "message 3", last[0].Text)
	assert.Equal(t, "message 4", last[1].Text)
}

func TestWriteIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	m := message("s1", 0, time.Now())

	require.NoError(t, s.WriteMessage(ctx, "s1", m))
	require.NoError(t, s.WriteMessage(ctx, "s1", m))

	got, err := s.LoadHistory(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDeleteHistory(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMessage(ctx, "s1", message("s1", 0, time.Now())))
	require.NoError(t, s.WriteMessage(ctx, "s2", message("s2", 0, time.Now())))
	require.NoError(t, s.DeleteHistory(ctx, "s1"))

	got, err := s.LoadHistory(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.LoadHistory(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPersistsAcrossReopen(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteMessage(ctx, "s1", message("s1", 0, time.Now())))
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadHistory(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestConcurrentWrites(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.WriteMessage(ctx, "s1", message("s1", i, base.Add(time.Duration(i)*time.Millisecond))))
		}(i)
	}
	wg.Wait()

	got, err := s.LoadHistory(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
