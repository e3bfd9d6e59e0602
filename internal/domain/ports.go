package domain

import "context"

// Responder is a remote text-generation endpoint.
//
// The call is bounded by ctx. Implementations return ErrNotConfigured when
// they have no credentials, which callers treat as "not available" rather
// than a transient failure.
type Responder interface {
	Generate(ctx context.Context, utterance string, turns []Turn) (string, error)
}

// DurableStore mirrors session history outside the process.
// Every method may fail; the message log never lets a failure reach the user.
type DurableStore interface {
	// LoadHistory returns the most recent `limit` messages in chronological
	// order. limit <= 0 means all.
	LoadHistory(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
	WriteMessage(ctx context.Context, sessionID SessionID, msg *Message) error
	DeleteHistory(ctx context.Context, sessionID SessionID) error
}
