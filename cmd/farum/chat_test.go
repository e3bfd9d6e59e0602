package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-chat/internal/app/chatlog"
	"github.com/PabloGalante/farum-chat/internal/app/classifier"
	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	"github.com/PabloGalante/farum-chat/internal/app/grouping"
	"github.com/PabloGalante/farum-chat/internal/app/responder"
	"github.com/PabloGalante/farum-chat/internal/config"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

func init() {
	color.NoColor = true
	observability.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newController(t *testing.T) *conversation.Controller {
	t.Helper()

	store := chatlog.New(memory.NewMessageStore(), chatlog.Config{})
	strategy := responder.New(nil, classifier.MustNew(classifier.WithSeed(9)), responder.Config{})
	svc := conversation.NewService(store, strategy, grouping.NewGrouper(time.UTC))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, svc.Close(ctx))
	})

	ctrl, err := svc.Session(context.Background(), "repl")
	require.NoError(t, err)
	return ctrl
}

func TestRenderGroups(t *testing.T) {
	now := time.Date(2025, 3, 5, 18, 0, 0, 0, time.UTC)
	msgs := []*domain.Message{
		{ID: "1", Author: domain.RoleAgent, Text: "Hello there", CreatedAt: now.Add(-26 * time.Hour)},
		{ID: "2", Author: domain.RoleUser, Text: "hi", CreatedAt: now.Add(-time.Hour)},
		{ID: "3", Author: domain.RoleUser, Text: "are you there?", CreatedAt: now.Add(-59 * time.Minute)},
	}

	var buf bytes.Buffer
	renderGroups(&buf, grouping.Group(msgs, now, time.UTC))
	out := buf.String()

	assert.Contains(t, out, "── Yesterday ──")
	assert.Contains(t, out, "── Today ──")
	assert.Contains(t, out, "Farum\n  Hello there\n  16:00\n")
	// one marker and one timestamp for the user's run
	assert.Equal(t, 1, strings.Count(out, "You\n"))
	assert.Contains(t, out, "You\n  hi\n  are you there?\n  17:01\n")
}

func TestRunREPL(t *testing.T) {
	ctrl := newController(t)

	in := strings.NewReader("hello\n\n/clear\ntell me a joke\n/quit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), in, &out, ctrl, true))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, chatlog.DefaultGreeting))
	assert.Contains(t, text, "Conversation cleared.")
	assert.Contains(t, text, "[fallback/greeting via")
	assert.Contains(t, text, "[fallback/joke via")
	assert.NotContains(t, text, "never read")

	// cleared, then one exchange
	assert.Len(t, ctrl.Snapshot().Messages, 3)
}

func TestRunREPLStopsAtEOF(t *testing.T) {
	ctrl := newController(t)

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), strings.NewReader("i feel sad"), &out, ctrl, false))
	assert.Len(t, ctrl.Snapshot().Messages, 3)
	assert.NotContains(t, out.String(), "[fallback")
}

func TestBootstrapSelectsBackends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"memory with mock", func(c *config.Config) { c.UseMockLLM = true }, false},
		{"no storage, remote disabled", func(c *config.Config) {
			c.StorageBackend = config.StorageNone
			c.RemoteEnabled = false
		}, false},
		{"sqlite", func(c *config.Config) {
			c.StorageBackend = config.StorageSQLite
			c.SQLitePath = t.TempDir() + "/farum.db"
			c.UseMockLLM = true
		}, false},
		{"vertex without project falls back to classifier", func(c *config.Config) { c.GCPProjectID = "" }, false},
		{"firestore without project", func(c *config.Config) { c.StorageBackend = config.StorageFirestore }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(cfg)

			a, err := bootstrap(context.Background(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			out, err := a.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "boot", Text: "hello"})
			require.NoError(t, err)
			assert.NotNil(t, out.AgentMessage)
			require.NoError(t, a.Close(ctx))
		})
	}
}

func TestEvictionInterval(t *testing.T) {
	assert.Equal(t, time.Minute, evictionInterval(30*time.Minute))
	assert.Equal(t, 15*time.Second, evictionInterval(time.Minute))
	assert.Zero(t, evictionInterval(0))
}

func TestBootstrapDefaultsToClassifier(t *testing.T) {
	a, err := bootstrap(context.Background(), config.Defaults())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	defer func() { require.NoError(t, a.Close(ctx)) }()

	out, err := a.svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "boot", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, responder.SourceFallback, out.Source)
}
