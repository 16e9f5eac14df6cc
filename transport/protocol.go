// Package transport exposes the relay over HTTP and websocket using
// fiber. The websocket speaks a JSON envelope protocol; every frame is
// {"event": <name>, "data": <payload>}.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
)

// Client -> server event names.
const (
	EventSetup      = "setup"
	EventJoinRoom   = "join room"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
	EventNewMessage = "new message"
)

// Server -> client event names.
const (
	EventConnected         = "connected"
	EventMessageReceived   = "message received"
	EventMembershipChanged = "membership changed"
	EventError             = "error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type setupPayload struct {
	Token string `json:"token"`
}

type roomPayload struct {
	ChatID string `json:"chat_id"`
}

type newMessagePayload struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

type connectedPayload struct {
	Principal string `json:"principal"`
}

type typingPayload struct {
	ChatID string `json:"chat_id"`
	By     string `json:"by"`
}

type membershipPayload struct {
	ChatID  string   `json:"chat_id"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// MessagePayload is the wire shape of a delivered message. The client
// package decodes the same struct.
type MessagePayload struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name,omitempty"`
	Body       string    `json:"body"`
	Lang       string    `json:"lang,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toMessagePayload(m chat.Message) MessagePayload {
	return MessagePayload{
		ID:         m.ID.String(),
		ChatID:     string(m.Conversation),
		Sender:     string(m.Sender),
		SenderName: m.SenderName,
		Body:       m.Body,
		Lang:       m.Lang,
		CreatedAt:  m.CreatedAt,
	}
}

func envelope(name string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: name, Data: raw}, nil
}

// EncodeEvent maps a domain event to its wire envelope.
func EncodeEvent(e event.DomainEvent) (Envelope, error) {
	switch v := e.(type) {
	case event.Connected:
		return envelope(EventConnected, connectedPayload{Principal: string(v.Principal)})
	case event.MessageReceived:
		return envelope(EventMessageReceived, toMessagePayload(v.Message))
	case event.TypingStarted:
		return envelope(EventTyping, typingPayload{ChatID: string(v.Chat), By: string(v.By)})
	case event.TypingStopped:
		return envelope(EventStopTyping, typingPayload{ChatID: string(v.Chat), By: string(v.By)})
	case event.MembershipChanged:
		return envelope(EventMembershipChanged, membershipPayload{
			ChatID:  string(v.Chat),
			Added:   principalsToStrings(v.Added),
			Removed: principalsToStrings(v.Removed),
		})
	default:
		return Envelope{}, fmt.Errorf("unmapped event type %T", e)
	}
}

func errorEnvelope(message string) Envelope {
	raw, _ := json.Marshal(errorPayload{Message: message})
	return Envelope{Event: EventError, Data: raw}
}

func principalsToStrings(ps []chat.Principal) []string {
	if len(ps) == 0 {
		return nil
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}
