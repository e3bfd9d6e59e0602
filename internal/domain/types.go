package domain

import "time"

// SessionID is the opaque owner token of a conversation.
type SessionID string
type MessageID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether r is one of the known authors.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

type Timestamp = time.Time
