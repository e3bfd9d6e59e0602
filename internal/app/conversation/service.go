package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/farum-chat/internal/app/chatlog"
	"github.com/PabloGalante/farum-chat/internal/app/grouping"
	"github.com/PabloGalante/farum-chat/internal/app/responder"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

// Service hands out one Controller per owner token, created and loaded on
// first access. Sessions left idle longer than the idle TTL are dropped from
// memory by EvictIdle and reloaded from the durable store on next access.
type Service struct {
	store    *chatlog.Store
	strategy *responder.Strategy
	grouper  *grouping.Grouper

	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[domain.SessionID]*lazySession
}

type lazySession struct {
	once     sync.Once
	ctrl     *Controller
	lastUsed time.Time // guarded by Service.mu
}

type ServiceOption func(*Service)

// WithIdleTTL enables eviction of sessions unused for d. Zero disables it.
func WithIdleTTL(d time.Duration) ServiceOption {
	return func(s *Service) { s.idleTTL = d }
}

// WithClock replaces the clock used to track session activity.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	store *chatlog.Store,
	strategy *responder.Strategy,
	grouper *grouping.Grouper,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		store:    store,
		strategy: strategy,
		grouper:  grouper,
		now:      time.Now,
		sessions: make(map[domain.SessionID]*lazySession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the controller for id, loading its history the first time.
// Concurrent first callers wait for the same load, which outlives the
// caller's cancellation so a dropped request can't leave the session empty.
func (s *Service) Session(ctx context.Context, id domain.SessionID) (*Controller, error) {
	if id == "" {
		return nil, domain.ErrMissingSession
	}

	s.mu.Lock()
	ls, ok := s.sessions[id]
	if !ok {
		ls = &lazySession{ctrl: NewController(id, s.store, s.strategy, s.grouper)}
		s.sessions[id] = ls
	}
	ls.lastUsed = s.now()
	s.mu.Unlock()

	ls.once.Do(func() {
		log := observability.LoggerFromContext(ctx).With("session_id", id)
		log.Info("starting session")
		msgs := ls.ctrl.Load(context.WithoutCancel(ctx))
		log.Info("session started", "message_count", len(msgs))
	})
	return ls.ctrl, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  *domain.Message
	AgentMessage *domain.Message
	Source       responder.Source
	Discarded    bool
}

func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	ctrl, err := s.Session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", in.SessionID)
	log.Info("sending message", "text_len", len(in.Text))

	res, err := ctrl.Submit(ctx, in.Text)
	if err != nil {
		log.Info("message rejected", "error", err)
		return nil, err
	}

	log.Info("send message completed",
		"source", res.Resolution.Source,
		"category", res.Resolution.Category,
		"discarded", res.Discarded)

	return &SendMessageOutput{
		UserMessage:  res.UserMessage,
		AgentMessage: res.AgentMessage,
		Source:       res.Resolution.Source,
		Discarded:    res.Discarded,
	}, nil
}

// Timeline is the render-ready view of a session.
type Timeline struct {
	SessionID domain.SessionID
	State     State
	Groups    []domain.DisplayGroup
}

func (s *Service) GetSessionTimeline(ctx context.Context, id domain.SessionID) (*Timeline, error) {
	ctrl, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := ctrl.Snapshot()
	groups := s.grouper.Group(snap.Messages)

	observability.LoggerFromContext(ctx).Debug("fetched session timeline",
		"session_id", id, "message_count", len(snap.Messages), "group_count", len(groups))

	return &Timeline{SessionID: id, State: snap.State, Groups: groups}, nil
}

func (s *Service) ClearSession(ctx context.Context, id domain.SessionID) (*domain.Message, error) {
	ctrl, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	greeting := ctrl.Clear()
	observability.LoggerFromContext(ctx).Info("session cleared", "session_id", id)
	return greeting, nil
}

// ActiveSessions is the number of sessions held in memory.
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops ready sessions unused for longer than the idle TTL and
// returns how many were dropped. Sessions loading or waiting for a reply
// are kept.
func (s *Service) EvictIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for id, ls := range s.sessions {
		if !ls.lastUsed.Before(cutoff) || ls.ctrl.State() != StateReady {
			continue
		}
		delete(s.sessions, id)
		s.store.Forget(id)
		evicted++
	}
	if evicted > 0 {
		observability.Logger().Info("evicted idle sessions",
			"evicted", evicted, "remaining", len(s.sessions))
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (s *Service) RunEviction(ctx context.Context, interval time.Duration) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

// Close drains pending durable replication.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
