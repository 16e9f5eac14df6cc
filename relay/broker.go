package relay

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/observability"
)

// room holds one conversation's live subscribers behind its own lock, so
// traffic on unrelated conversations never contends.
type room struct {
	mu      sync.Mutex
	members map[chat.ConnectionID]contract.EventSink
}

// RoomBroker maps conversations to the sessions currently subscribed to
// their live events. Join is trusted: membership against storage is the
// caller's responsibility. Delivery is best-effort and non-blocking per
// subscriber; a slow consumer loses the event, the rest of the room does
// not.
type RoomBroker struct {
	mu         sync.RWMutex
	rooms      map[chat.ConversationID]*room
	byConn     map[chat.ConnectionID]map[chat.ConversationID]struct{}
	log        *slog.Logger
	monitoring *observability.MonitoringManager
}

var _ contract.IBroker = (*RoomBroker)(nil)

func NewRoomBroker(log *slog.Logger, monitoring *observability.MonitoringManager) *RoomBroker {
	return &RoomBroker{
		rooms:      make(map[chat.ConversationID]*room),
		byConn:     make(map[chat.ConnectionID]map[chat.ConversationID]struct{}),
		log:        log,
		monitoring: monitoring,
	}
}

// Join subscribes a connection to a room. No-op if already joined.
//
// The member insert happens while b.mu is still held (locks nested
// b.mu -> r.mu, same order as dropIfEmpty). Releasing b.mu first would
// open a window where a concurrent last-member Leave deletes the room
// entry and the joiner lands in an orphaned struct that Broadcast can
// no longer find.
func (b *RoomBroker) Join(conn chat.ConnectionID, roomID chat.ConversationID, s contract.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[roomID]
	if !ok {
		r = &room{members: make(map[chat.ConnectionID]contract.EventSink)}
		b.rooms[roomID] = r
	}
	if _, ok := b.byConn[conn]; !ok {
		b.byConn[conn] = make(map[chat.ConversationID]struct{})
	}
	b.byConn[conn][roomID] = struct{}{}

	r.mu.Lock()
	r.members[conn] = s
	r.mu.Unlock()
}

func (b *RoomBroker) Leave(conn chat.ConnectionID, roomID chat.ConversationID) {
	b.mu.Lock()
	r, ok := b.rooms[roomID]
	if joined, found := b.byConn[conn]; found {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(b.byConn, conn)
		}
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.members, conn)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		b.dropIfEmpty(roomID)
	}
}

// LeaveAll removes a connection from every room it joined. Invoked
// synchronously on disconnect so no later broadcast can target the
// departed session.
func (b *RoomBroker) LeaveAll(conn chat.ConnectionID) {
	b.mu.Lock()
	joined := b.byConn[conn]
	delete(b.byConn, conn)
	rooms := make(map[chat.ConversationID]*room, len(joined))
	for roomID := range joined {
		if r, ok := b.rooms[roomID]; ok {
			rooms[roomID] = r
		}
	}
	b.mu.Unlock()

	for roomID, r := range rooms {
		r.mu.Lock()
		delete(r.members, conn)
		empty := len(r.members) == 0
		r.mu.Unlock()
		if empty {
			b.dropIfEmpty(roomID)
		}
	}
}

// Broadcast delivers an event to every joined session except the
// optionally excluded connections. Delivery happens under the room lock:
// sinks are non-blocking buffers, and holding the lock keeps the event
// stream order identical for every subscriber.
func (b *RoomBroker) Broadcast(ctx context.Context, roomID chat.ConversationID, e event.DomainEvent, exclude ...chat.ConnectionID) {
	b.mu.RLock()
	r, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return
	}
	b.monitoring.IncrBroadcasts()

	excluded := make(map[chat.ConnectionID]struct{}, len(exclude))
	for _, c := range exclude {
		excluded[c] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for conn, s := range r.members {
		if _, skip := excluded[conn]; skip {
			continue
		}
		if err := s.Consume(ctx, e); err != nil {
			// Best-effort: never retried, never surfaced to the sender.
			b.monitoring.IncrDropped()
			b.log.Warn("event dropped for subscriber",
				"connection_id", string(conn),
				"conversation_id", string(roomID),
				"error", err)
			continue
		}
		b.monitoring.IncrDelivered()
	}
}

// Rooms reports which rooms a connection is currently joined to.
func (b *RoomBroker) Rooms(conn chat.ConnectionID) []chat.ConversationID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]chat.ConversationID, 0, len(b.byConn[conn]))
	for roomID := range b.byConn[conn] {
		out = append(out, roomID)
	}
	return out
}

// dropIfEmpty removes a room entry once its last member left, so the
// room map does not grow without bound.
func (b *RoomBroker) dropIfEmpty(roomID chat.ConversationID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[roomID]
	if !ok {
		return
	}
	r.mu.Lock()
	empty := len(r.members) == 0
	r.mu.Unlock()
	if empty {
		delete(b.rooms, roomID)
	}
}
