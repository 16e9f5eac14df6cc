// Package chat holds the persisted entities of the relay: principals,
// conversations and messages. In-memory session and room state lives in
// the relay package, not here.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the opaque identifier of an authenticated user. It is
// immutable for the lifetime of a session.
type Principal string

// ConversationID identifies a one-to-one or group conversation.
type ConversationID string

// ConnectionID identifies one live transport connection. A principal may
// hold several concurrent connections (multi-device).
type ConnectionID string

type User struct {
	ID        Principal
	Name      string
	Email     string
	AvatarURL string
}

// Conversation is the persisted chat entity. LatestMessage is a display
// hint only; message order comes from the message log.
type Conversation struct {
	ID            ConversationID
	IsGroup       bool
	Name          string    // groups only
	Admin         Principal // groups only
	Members       []Principal
	LatestMessage *Message
}

func (c Conversation) HasMember(p Principal) bool {
	for _, m := range c.Members {
		if m == p {
			return true
		}
	}
	return false
}

type Message struct {
	ID           uuid.UUID
	Conversation ConversationID
	Sender       Principal
	SenderName   string
	Body         string
	Lang         string
	CreatedAt    time.Time
}
