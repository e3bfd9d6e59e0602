// Package responder decides how a reply is produced: the remote model first,
// the canned classifier when the remote is missing, slow, failing or out of
// budget. Callers always get exactly one non-empty reply.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/PabloGalante/farum-chat/internal/app/classifier"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

const (
	DefaultTimeout       = 8 * time.Second
	DefaultContextWindow = 10
)

// State is a step of the per-utterance state machine.
type State string

const (
	StatePending      State = "pending"
	StateRemoteOK     State = "remote_ok"
	StateRemoteFailed State = "remote_failed"
	StateResolved     State = "resolved"
)

// Source tells which tier produced the reply.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

var errBudgetExhausted = errors.New("remote call budget exhausted")

type Config struct {
	// Timeout bounds every remote call. Zero means DefaultTimeout.
	Timeout time.Duration
	// ContextWindow is how many recent messages are sent as context.
	ContextWindow int
	// RatePerMinute caps remote calls; 0 disables the cap.
	RatePerMinute int
}

// Resolution is the outcome of Respond.
type Resolution struct {
	Reply    string
	Source   Source
	Category classifier.Category // fallback only
	Path     []State
}

type Strategy struct {
	remote   domain.Responder
	fallback *classifier.Classifier
	timeout  time.Duration
	window   int
	limiter  *rate.Limiter
}

// New builds a strategy. remote may be nil, meaning no model is configured.
func New(remote domain.Responder, fallback *classifier.Classifier, cfg Config) *Strategy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}

	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), cfg.RatePerMinute)
	}

	return &Strategy{
		remote:   remote,
		fallback: fallback,
		timeout:  cfg.Timeout,
		window:   cfg.ContextWindow,
		limiter:  limiter,
	}
}

// RemoteConfigured reports whether a remote responder is wired.
func (s *Strategy) RemoteConfigured() bool {
	return s.remote != nil
}

// Respond produces the reply to utterance given the prior history.
// Remote failures are logged, never returned.
func (s *Strategy) Respond(ctx context.Context, utterance string, history []*domain.Message) Resolution {
	log := observability.LoggerFromContext(ctx)
	path := []State{StatePending}

	reply, err := s.callRemote(ctx, utterance, BuildContext(history, s.window))
	if err == nil {
		return Resolution{
			Reply:  reply,
			Source: SourceRemote,
			Path:   append(path, StateRemoteOK, StateResolved),
		}
	}

	if errors.Is(err, domain.ErrNotConfigured) {
		log.Debug("remote responder not available, using fallback", "error", err)
	} else {
		log.Warn("remote responder failed, using fallback", "error", err)
	}

	res := s.fallback.Classify(utterance)
	return Resolution{
		Reply:    res.Reply,
		Source:   SourceFallback,
		Category: res.Category,
		Path:     append(path, StateRemoteFailed, StateResolved),
	}
}

type remoteResult struct {
	reply string
	err   error
}

// callRemote enforces the timeout even when the responder ignores its context.
func (s *Strategy) callRemote(ctx context.Context, utterance string, turns []domain.Turn) (string, error) {
	if s.remote == nil {
		return "", domain.ErrNotConfigured
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return "", errBudgetExhausted
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan remoteResult, 1)
	go func() {
		reply, err := s.remote.Generate(callCtx, utterance, turns)
		done <- remoteResult{reply: reply, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		reply := strings.TrimSpace(r.reply)
		if reply == "" {
			return "", domain.ErrEmptyReply
		}
		observability.LoggerFromContext(ctx).Debug("remote reply",
			"elapsed_ms", time.Since(start).Milliseconds(), "context_turns", len(turns))
		return reply, nil
	case <-callCtx.Done():
		return "", fmt.Errorf("remote responder after %s: %w", time.Since(start).Round(time.Millisecond), callCtx.Err())
	}
}

// BuildContext converts the last n messages into role-tagged turns.
func BuildContext(history []*domain.Message, n int) []domain.Turn {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	turns := make([]domain.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, domain.Turn{Role: m.Author, Text: m.Text})
	}
	return turns
}
