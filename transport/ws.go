package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/sink"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// frameWriter is the piece of the websocket connection the session needs.
// Narrowed for tests.
type frameWriter interface {
	WriteJSON(v interface{}) error
}

// WSGateway upgrades connections and runs one session per socket.
type WSGateway struct {
	log           *slog.Logger
	registry      contract.IRegistry
	broker        contract.IBroker
	typing        *relay.TypingCoordinator
	pipeline      *relay.Pipeline
	conversations repositories.IConversationRepository
	bufferSize    int
}

func NewWSGateway(
	log *slog.Logger,
	registry contract.IRegistry,
	broker contract.IBroker,
	typing *relay.TypingCoordinator,
	pipeline *relay.Pipeline,
	conversations repositories.IConversationRepository,
	bufferSize int,
) *WSGateway {
	return &WSGateway{
		log:           log,
		registry:      registry,
		broker:        broker,
		typing:        typing,
		pipeline:      pipeline,
		conversations: conversations,
		bufferSize:    bufferSize,
	}
}

// Upgrade gates the websocket endpoint behind fiber's upgrade check.
func (g *WSGateway) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler is the websocket entry point. It registers the session, starts
// the write pump and runs the read loop until the peer goes away; the
// registry cascade on exit completes before the handler returns.
func (g *WSGateway) Handler() fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := g.newSession(ws)
		g.registry.Register(s.conn, s.sink)
		defer g.registry.Unregister(s.conn)

		go s.writePump(ctx)
		s.readLoop(ctx, ws)
	})
}

func (g *WSGateway) newSession(writer frameWriter) *wsSession {
	s := &wsSession{
		gateway: g,
		conn:    chat.ConnectionID(uuid.New().String()),
		sink:    sink.NewSessionSink(g.bufferSize),
		writer:  writer,
		log:     g.log,
	}
	s.handlers = map[string]func(ctx context.Context, data json.RawMessage) error{
		EventSetup:      s.onSetup,
		EventJoinRoom:   s.onJoinRoom,
		EventTyping:     s.onTyping,
		EventStopTyping: s.onStopTyping,
		EventNewMessage: s.onNewMessage,
	}
	return s
}

// wsSession is the per-connection state machine: unbound until a valid
// `setup`, then principal-scoped for the rest of its life.
type wsSession struct {
	gateway  *WSGateway
	conn     chat.ConnectionID
	sink     *sink.SessionSink
	writeMu  sync.Mutex // the write pump and direct replies share the socket
	writer   frameWriter
	log      *slog.Logger
	handlers map[string]func(ctx context.Context, data json.RawMessage) error
}

func (s *wsSession) write(env Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writer.WriteJSON(env)
}

// writePump drains the session sink into websocket frames. It is the
// only goroutine writing to the socket after the handshake.
func (s *wsSession) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.sink.Events:
			env, err := EncodeEvent(e)
			if err != nil {
				s.log.Error("event encoding failed", "connection_id", string(s.conn), "error", err)
				continue
			}
			if err := s.write(env); err != nil {
				s.log.Debug("websocket write failed", "connection_id", string(s.conn), "error", err)
				return
			}
		}
	}
}

func (s *wsSession) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			s.log.Debug("websocket closed", "connection_id", string(s.conn), "error", err)
			return
		}
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			s.reply(errorEnvelope("malformed frame"))
			continue
		}
		s.dispatch(ctx, env)
	}
}

func (s *wsSession) dispatch(ctx context.Context, env Envelope) {
	handler, ok := s.handlers[env.Event]
	if !ok {
		s.reply(errorEnvelope("unknown event: " + env.Event))
		return
	}
	if err := handler(ctx, env.Data); err != nil {
		s.log.Warn("event rejected",
			"connection_id", string(s.conn), "event", env.Event, "error", err)
		s.reply(errorEnvelope(err.Error()))
	}
}

func (s *wsSession) reply(env Envelope) {
	if err := s.write(env); err != nil {
		s.log.Debug("websocket write failed", "connection_id", string(s.conn), "error", err)
	}
}

// onSetup validates the token and binds the connection. The `connected`
// acknowledgment flows back through this session's sink only.
func (s *wsSession) onSetup(ctx context.Context, data json.RawMessage) error {
	var payload setupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.ErrInvalidRequest
	}
	claims, err := auth.ValidateToken(payload.Token)
	if err != nil {
		return errors.ErrUnauthorized
	}
	return s.gateway.registry.Bind(ctx, s.conn, chat.Principal(claims.UserID))
}

// onJoinRoom subscribes the connection to a room after a storage-side
// membership check. The broker itself trusts its callers.
func (s *wsSession) onJoinRoom(ctx context.Context, data json.RawMessage) error {
	p, room, err := s.roomRequest(data)
	if err != nil {
		return err
	}
	member, err := s.gateway.conversations.IsMember(room, p)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrNotMember
	}
	s.gateway.broker.Join(s.conn, room, s.sink)
	return nil
}

func (s *wsSession) onTyping(ctx context.Context, data json.RawMessage) error {
	p, room, err := s.roomRequest(data)
	if err != nil {
		return err
	}
	s.gateway.typing.OnTypingSignal(ctx, room, p, s.conn)
	return nil
}

func (s *wsSession) onStopTyping(ctx context.Context, data json.RawMessage) error {
	p, room, err := s.roomRequest(data)
	if err != nil {
		return err
	}
	s.gateway.typing.OnStopTyping(ctx, room, p, s.conn)
	return nil
}

// onNewMessage pushes the message through the delivery pipeline. The
// broadcast excludes this connection; the sender's acknowledgment is the
// persisted message echoed through its own sink.
func (s *wsSession) onNewMessage(ctx context.Context, data json.RawMessage) error {
	p, ok := s.gateway.registry.Lookup(s.conn)
	if !ok {
		return errors.ErrUnauthorized
	}
	var payload newMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.ErrInvalidRequest
	}
	message, err := s.gateway.pipeline.Send(ctx, chat.SendMessageCommand{
		Chat:   chat.ConversationID(payload.ChatID),
		Sender: p,
		Body:   payload.Body,
	}, s.conn)
	if err != nil {
		return err
	}
	env, err := envelope(EventMessageReceived, toMessagePayload(message))
	if err != nil {
		return err
	}
	s.reply(env)
	return nil
}

// roomRequest decodes a room-scoped payload and requires a bound session.
func (s *wsSession) roomRequest(data json.RawMessage) (chat.Principal, chat.ConversationID, error) {
	p, ok := s.gateway.registry.Lookup(s.conn)
	if !ok {
		return "", "", errors.ErrUnauthorized
	}
	var payload roomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", errors.ErrInvalidRequest
	}
	if payload.ChatID == "" {
		return "", "", errors.ErrInvalidRequest
	}
	return p, chat.ConversationID(payload.ChatID), nil
}
