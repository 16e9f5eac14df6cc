package sink

import (
	"context"

	"chat-relay/domain/event"
	"chat-relay/errors"
)

// SessionSink buffers events for one websocket connection. The write
// pump on the transport side drains Events and pushes frames to the
// client.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the broker during fan-out. A full buffer means a
// slow consumer; the event is dropped rather than blocking delivery to
// the rest of the room.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSlowConsumer
	}
}
