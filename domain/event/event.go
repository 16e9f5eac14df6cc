// Package event defines the events fanned out to connected sessions.
package event

import (
	"chat-relay/domain/chat"
)

// DomainEvent is anything a session sink can receive. Conversation
// returns the room the event belongs to; session-scoped events (the
// setup acknowledgment) return the empty id.
type DomainEvent interface {
	Conversation() chat.ConversationID
}

// Connected acknowledges a successful setup handshake. It is sent to the
// bound connection only, never broadcast.
type Connected struct {
	Principal chat.Principal
}

func (Connected) Conversation() chat.ConversationID { return "" }

// MessageReceived carries a fully populated, already persisted message.
type MessageReceived struct {
	Message chat.Message
}

func (e MessageReceived) Conversation() chat.ConversationID {
	return e.Message.Conversation
}

type TypingStarted struct {
	Chat chat.ConversationID
	By   chat.Principal
}

func (e TypingStarted) Conversation() chat.ConversationID { return e.Chat }

type TypingStopped struct {
	Chat chat.ConversationID
	By   chat.Principal
}

func (e TypingStopped) Conversation() chat.ConversationID { return e.Chat }

// MembershipChanged notifies a room that its member set changed in
// storage, so connected clients can refresh their conversation summary.
type MembershipChanged struct {
	Chat    chat.ConversationID
	Removed []chat.Principal
	Added   []chat.Principal
}

func (e MembershipChanged) Conversation() chat.ConversationID { return e.Chat }
