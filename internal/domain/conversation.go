package domain

// Message represents a message in a session timeline (user or agent).
// Messages are immutable once created: an edit is a new message.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp
}

// Turn is one role-tagged entry of the context sent to a remote responder.
type Turn struct {
	Role Role
	Text string
}

// DisplayFlags tells the presentation layer what to draw next to a message.
type DisplayFlags struct {
	ShowTimestamp      bool `json:"show_timestamp"`
	ShowIdentityMarker bool `json:"show_identity_marker"`
}

// DisplayMessage is a message plus its render metadata.
type DisplayMessage struct {
	Message   *Message
	Flags     DisplayFlags
	TimeLabel string
}

// DisplayGroup holds the messages of one calendar day, in order.
// It is derived from the message log on every render and never stored.
type DisplayGroup struct {
	DayLabel string
	Day      Timestamp
	Messages []DisplayMessage
}
