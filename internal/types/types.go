package types

import "time"

// Status is the lifecycle state of a chat message.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusSending   Status = "sending"
	StatusFailed    Status = "failed"
)

// Message represents a single chat utterance, confirmed or pending.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	Status         Status    `json:"status"`
	Optimistic     bool      `json:"optimistic,omitempty"`
	// ClientID is the temp id of the pending entry this message confirms,
	// when the backend echoes it back.
	ClientID string `json:"client_id,omitempty"`
}

// Pending reports whether the message is an unconfirmed local entry.
func (m Message) Pending() bool {
	return m.Status == StatusSending || m.Status == StatusFailed
}

// Page is one fetched slice of conversation history, newest first.
type Page struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// GroupKind distinguishes rendered rows.
type GroupKind string

const (
	GroupDateSeparator GroupKind = "date"
	GroupMessage       GroupKind = "message"
)

// Group is a derived display row: a date separator or a message with cluster flags.
type Group struct {
	Kind           GroupKind
	Date           time.Time
	Message        Message
	FirstInCluster bool
	LastInCluster  bool
	ShowAvatar     bool
}

// PresenceState is the online status of a participant.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

// Presence is a read-only status row for the conversation header.
type Presence struct {
	UserID   string        `json:"user_id"`
	State    PresenceState `json:"status"`
	LastSeen time.Time     `json:"last_seen,omitempty"`
}

// Participant identifies a member of a conversation.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Conversation is a summary row used when listing conversations.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	LastActivity time.Time     `json:"last_activity"`
}
