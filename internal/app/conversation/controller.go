package conversation

import (
	"context"
	"strings"
	"sync"

	"github.com/PabloGalante/farum-chat/internal/app/chatlog"
	"github.com/PabloGalante/farum-chat/internal/app/grouping"
	"github.com/PabloGalante/farum-chat/internal/app/responder"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

// State of a session as seen by the presentation layer.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateSending State = "sending"
)

// Controller owns one session: loading → ready ⇄ sending.
//
// At most one reply is pending at a time. The mutex is never held across the
// remote call, so Clear can run while a reply is in flight; the generation
// counter makes sure such a reply is dropped instead of appended.
type Controller struct {
	id       domain.SessionID
	store    *chatlog.Store
	strategy *responder.Strategy
	grouper  *grouping.Grouper

	mu         sync.Mutex
	state      State
	generation uint64
}

func NewController(
	id domain.SessionID,
	store *chatlog.Store,
	strategy *responder.Strategy,
	grouper *grouping.Grouper,
) *Controller {
	return &Controller{
		id:       id,
		store:    store,
		strategy: strategy,
		grouper:  grouper,
		state:    StateLoading,
	}
}

// Load reads history and moves the session to ready. It always succeeds.
func (c *Controller) Load(ctx context.Context) []*domain.Message {
	c.mu.Lock()
	c.state = StateLoading
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	msgs := c.store.Load(ctx, c.id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		// cleared while loading: the clear wins over the loaded history
		msgs = []*domain.Message{c.store.Clear(c.id)}
	}
	c.state = StateReady
	return msgs
}

// SubmitResult is what a submission produced.
type SubmitResult struct {
	UserMessage  *domain.Message
	AgentMessage *domain.Message // nil when Discarded
	Resolution   responder.Resolution
	// Discarded is set when the session was cleared before the reply arrived.
	Discarded bool
}

// Submit appends the user's text, asks the strategy for a reply and appends
// it. Blank text returns domain.ErrEmptyMessage and a submission while not
// ready returns domain.ErrBusy; neither changes any state.
func (c *Controller) Submit(ctx context.Context, text string) (*SubmitResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, domain.ErrBusy
	}
	history := c.store.Messages(c.id)
	userMsg := c.store.Append(c.id, domain.RoleUser, text)
	c.state = StateSending
	gen := c.generation
	c.mu.Unlock()

	res := c.strategy.Respond(ctx, text, history)

	c.mu.Lock()
	defer c.mu.Unlock()

	out := &SubmitResult{UserMessage: userMsg, Resolution: res}
	if c.generation != gen {
		observability.LoggerFromContext(ctx).Info("reply discarded, session was cleared",
			"session_id", c.id, "source", res.Source)
		out.Discarded = true
		return out, nil
	}

	out.AgentMessage = c.store.Append(c.id, domain.RoleAgent, res.Reply)
	c.state = StateReady
	return out, nil
}

// Clear resets the log to a fresh greeting. A reply still in flight will be discarded.
func (c *Controller) Clear() *domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	greeting := c.store.Clear(c.id)
	if c.state == StateSending {
		c.state = StateReady
	}
	return greeting
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	ID         domain.SessionID
	State      State
	Generation uint64
	Messages   []*domain.Message
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:         c.id,
		State:      c.state,
		Generation: c.generation,
		Messages:   c.store.Messages(c.id),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Groups is the display structure of the current log.
func (c *Controller) Groups() []domain.DisplayGroup {
	return c.grouper.Group(c.store.Messages(c.id))
}
