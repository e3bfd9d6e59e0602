// Package chatlog keeps the ordered message log of every session.
//
// The in-memory log is the source of truth for the running process. Appends
// are synchronous and never fail; each one is replicated to the durable store
// in the background, and a failed replication is logged, never rolled back.
package chatlog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

const (
	DefaultGreeting     = "Hello, I'm Farum. What would you like to talk about today?"
	DefaultHistoryLimit = 200
)

type Config struct {
	HistoryLimit   int
	PersistTimeout time.Duration
	Greeting       string
	// Now stamps new messages. Nil means time.Now.
	Now func() time.Time
}

type Store struct {
	mu   sync.RWMutex
	logs map[domain.SessionID][]*domain.Message

	durable      domain.DurableStore
	repl         *Replicator
	historyLimit int
	greeting     string

	now   func() time.Time
	newID func() domain.MessageID
}

// New builds a message log backed by durable. A nil durable store is valid:
// loads fall back to the greeting and nothing is replicated.
func New(durable domain.DurableStore, cfg Config) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if strings.TrimSpace(cfg.Greeting) == "" {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		logs:         make(map[domain.SessionID][]*domain.Message),
		durable:      durable,
		repl:         NewReplicator(durable, cfg.PersistTimeout),
		historyLimit: cfg.HistoryLimit,
		greeting:     cfg.Greeting,
		now:          cfg.Now,
		newID:        newMessageID,
	}
}

// Append adds a message to the session log and returns it. The durable write
// happens later; its outcome is not observable from here.
func (s *Store) Append(sessionID domain.SessionID, author domain.Role, text string) *domain.Message {
	s.mu.Lock()
	msg := s.newMessageLocked(sessionID, author, text)
	s.logs[sessionID] = append(s.logs[sessionID], msg)
	s.mu.Unlock()

	s.repl.Write(msg)
	return msg
}

// Messages returns a copy of the in-memory log.
func (s *Store) Messages(sessionID domain.SessionID) []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Message(nil), s.logs[sessionID]...)
}

// Load reads the durable history and makes it the session's in-memory log.
// It never returns an empty log: any failure, a missing backend or an empty
// history all yield a single synthesized greeting.
func (s *Store) Load(ctx context.Context, sessionID domain.SessionID) []*domain.Message {
	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	history, err := s.loadDurable(ctx, sessionID)
	switch {
	case !s.repl.Configured():
		log.Debug("no durable store, starting from greeting")
	case err != nil:
		log.Warn("loading durable history failed, using greeting", "error", err)
	}
	history = sanitize(history)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(history) == 0 {
		history = []*domain.Message{s.newMessageLocked(sessionID, domain.RoleAgent, s.greeting)}
	}
	s.logs[sessionID] = history

	log.Info("session history loaded", "message_count", len(history))
	return append([]*domain.Message(nil), history...)
}

// Clear replaces the session log with a fresh greeting and asks the durable
// store, best effort, to drop its history.
func (s *Store) Clear(sessionID domain.SessionID) *domain.Message {
	s.mu.Lock()
	greeting := s.newMessageLocked(sessionID, domain.RoleAgent, s.greeting)
	s.logs[sessionID] = []*domain.Message{greeting}
	s.mu.Unlock()

	s.repl.Delete(sessionID)
	return greeting
}

// Close stops replication and waits for pending writes. The in-memory log
// stays usable but nothing more reaches the durable store.
func (s *Store) Close(ctx context.Context) error {
	return s.repl.Close(ctx)
}

// Forget drops the in-memory log of a session. The next Load reads it back
// from the durable store.
func (s *Store) Forget(sessionID domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, sessionID)
}

func (s *Store) loadDurable(ctx context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	if s.durable == nil {
		return nil, domain.ErrNotConfigured
	}
	return s.durable.LoadHistory(ctx, sessionID, s.historyLimit)
}

// newMessageLocked stamps a message. Timestamps never go backwards within a
// session so the durable copy sorts the same way as the in-memory log.
func (s *Store) newMessageLocked(sessionID domain.SessionID, author domain.Role, text string) *domain.Message {
	at := s.now()
	if log := s.logs[sessionID]; len(log) > 0 {
		if last := log[len(log)-1].CreatedAt; !at.After(last) {
			at = last.Add(time.Nanosecond)
		}
	}

	return &domain.Message{
		ID:        s.newID(),
		SessionID: sessionID,
		Author:    author,
		Text:      text,
		CreatedAt: at,
	}
}

// sanitize drops unusable rows and restores chronological order, which
// unordered durable writes may not preserve.
func sanitize(msgs []*domain.Message) []*domain.Message {
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil || strings.TrimSpace(m.Text) == "" || !m.Author.Valid() {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func newMessageID() domain.MessageID {
	return domain.MessageID(uuid.Must(uuid.NewV7()).String())
}
