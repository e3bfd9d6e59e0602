package domain

import "errors"

var (
	// ErrNotConfigured marks a collaborator without credentials or backend.
	ErrNotConfigured = errors.New("not configured")

	// ErrEmptyReply is returned by responders that produced no text.
	ErrEmptyReply = errors.New("empty reply")

	// ErrEmptyMessage rejects blank submissions before anything is appended.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrMissingSession rejects calls without an owner token.
	ErrMissingSession = errors.New("session id is required")

	// ErrBusy rejects a submission while a reply is still pending.
	ErrBusy = errors.New("session is waiting for a reply")
)
