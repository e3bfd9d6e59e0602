package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// MessageStore is an in-memory domain.DurableStore.
// It is NOT persistent and is only suitable for development / local mode.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]domain.Message
}

var _ domain.DurableStore = (*MessageStore)(nil)

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.SessionID][]domain.Message),
	}
}

func (s *MessageStore) WriteMessage(ctx context.Context, sessionID domain.SessionID, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[sessionID] = append(s.messages[sessionID], *msg)
	return nil
}

func (s *MessageStore) LoadHistory(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*domain.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out = append(out, &m)
	}
	return out, nil
}

func (s *MessageStore) DeleteHistory(ctx context.Context, sessionID domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, sessionID)
	return nil
}
