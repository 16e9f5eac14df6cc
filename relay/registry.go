// Package relay implements the real-time delivery core: session
// registry, room broker, typing coordinator and the message delivery
// pipeline.
package relay

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
)

type session struct {
	conn      chat.ConnectionID
	principal chat.Principal // empty until the setup handshake
	sink      contract.EventSink
}

type roomLeaver interface {
	LeaveAll(conn chat.ConnectionID)
}

type typingResetter interface {
	OnDisconnect(p chat.Principal)
}

// SessionRegistry owns the connect/bind/disconnect lifecycle. Disconnect
// cleanup is synchronous: by the time Unregister returns, the session is
// out of every room and its typing state is reset.
type SessionRegistry struct {
	mu          sync.RWMutex
	sessions    map[chat.ConnectionID]*session
	byPrincipal map[chat.Principal]map[chat.ConnectionID]struct{}
	rooms       roomLeaver
	typing      typingResetter
	log         *slog.Logger
	monitoring  *observability.MonitoringManager
}

var _ contract.IRegistry = (*SessionRegistry)(nil)

func NewSessionRegistry(log *slog.Logger, rooms roomLeaver, typing typingResetter,
	monitoring *observability.MonitoringManager) *SessionRegistry {
	return &SessionRegistry{
		sessions:    make(map[chat.ConnectionID]*session),
		byPrincipal: make(map[chat.Principal]map[chat.ConnectionID]struct{}),
		rooms:       rooms,
		typing:      typing,
		log:         log,
		monitoring:  monitoring,
	}
}

// Register records a fresh, unbound connection. Unbound sessions receive
// no room traffic until Bind succeeds.
func (r *SessionRegistry) Register(conn chat.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn]; ok {
		return
	}
	r.sessions[conn] = &session{conn: conn, sink: sink}
	r.monitoring.ConnOpened()
}

// Bind is the one-time setup step attaching a principal to a connection.
// Rebinding the same principal is a no-op; a different principal is
// rejected. On success the `connected` acknowledgment goes to this
// single connection, never the room.
func (r *SessionRegistry) Bind(ctx context.Context, conn chat.ConnectionID, p chat.Principal) error {
	r.mu.Lock()
	s, ok := r.sessions[conn]
	if !ok {
		r.mu.Unlock()
		return errors.ErrSessionNotFound
	}
	if s.principal != "" {
		already := s.principal
		r.mu.Unlock()
		if already == p {
			return nil
		}
		return errors.ErrAlreadyBound
	}
	s.principal = p
	if _, ok := r.byPrincipal[p]; !ok {
		r.byPrincipal[p] = make(map[chat.ConnectionID]struct{})
	}
	r.byPrincipal[p][conn] = struct{}{}
	sink := s.sink
	r.mu.Unlock()

	r.monitoring.SessionBound()
	if err := sink.Consume(ctx, event.Connected{Principal: p}); err != nil {
		r.log.Warn("connected ack dropped", "connection_id", string(conn), "error", err)
	}
	return nil
}

func (r *SessionRegistry) Lookup(conn chat.ConnectionID) (chat.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[conn]
	if !ok || s.principal == "" {
		return "", false
	}
	return s.principal, true
}

// Sink returns the event sink of a live connection.
func (r *SessionRegistry) Sink(conn chat.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[conn]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

// ConnectionsOf lists the live connections of a principal (multi-device).
func (r *SessionRegistry) ConnectionsOf(p chat.Principal) []chat.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]chat.ConnectionID, 0, len(r.byPrincipal[p]))
	for conn := range r.byPrincipal[p] {
		conns = append(conns, conn)
	}
	return conns
}

// Unregister removes a session on transport disconnect. Idempotent. The
// cascade (room membership, typing timers) completes before returning,
// so no queued broadcast can still target this connection. Typing state
// is keyed by principal, not connection, so it is reset only when the
// principal's last device disconnects; a surviving device keeps its
// active indicator.
func (r *SessionRegistry) Unregister(conn chat.ConnectionID) {
	r.mu.Lock()
	s, ok := r.sessions[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, conn)
	p := s.principal
	lastOfPrincipal := false
	if p != "" {
		if set, found := r.byPrincipal[p]; found {
			delete(set, conn)
			if len(set) == 0 {
				delete(r.byPrincipal, p)
				lastOfPrincipal = true
			}
		}
	}
	r.mu.Unlock()

	r.rooms.LeaveAll(conn)
	if p != "" {
		r.monitoring.SessionUnbound()
		// Typing state belongs to the principal; only reset it when the
		// last device disconnects.
		if lastOfPrincipal {
			r.typing.OnDisconnect(p)
		}
	}
	r.monitoring.ConnClosed()
}
