package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/mocks"
	"chat-relay/observability"
	"chat-relay/relay"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingWriter captures every frame the session writes.
type recordingWriter struct {
	mu     sync.Mutex
	frames []Envelope
}

func (w *recordingWriter) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, v.(Envelope))
	return nil
}

func (w *recordingWriter) written() []Envelope {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Envelope, len(w.frames))
	copy(out, w.frames)
	return out
}

type wsFixture struct {
	session       *wsSession
	writer        *recordingWriter
	registry      *mocks.MockIRegistry
	broker        *mocks.MockIBroker
	conversations *mocks.MockIConversationRepository
	messages      *mocks.MockIMessageRepository
}

func newWSFixture(t *testing.T) wsFixture {
	ctrl := gomock.NewController(t)
	f := wsFixture{
		writer:        &recordingWriter{},
		registry:      mocks.NewMockIRegistry(ctrl),
		broker:        mocks.NewMockIBroker(ctrl),
		conversations: mocks.NewMockIConversationRepository(ctrl),
		messages:      mocks.NewMockIMessageRepository(ctrl),
	}
	log := slog.Default()
	monitoring := observability.NewMonitoringManager()
	typing := relay.NewTypingCoordinator(log, f.broker, time.Hour, monitoring)
	pipeline := relay.NewPipeline(log, f.messages, f.conversations, nil, nil,
		f.broker, nil, monitoring)
	gateway := NewWSGateway(log, f.registry, f.broker, typing, pipeline,
		f.conversations, 8)
	f.session = gateway.newSession(f.writer)
	return f
}

func frame(eventName string, data any) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{Event: eventName, Data: raw}
}

func TestWS_SetupBindsTokenPrincipal(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	token, err := auth.GenerateToken("user-1", "Alice", time.Hour)
	req.NoError(err)

	f.registry.EXPECT().
		Bind(gomock.Any(), f.session.conn, chat.Principal("user-1")).
		Return(nil)

	f.session.dispatch(context.Background(), frame(EventSetup, map[string]string{"token": token}))
	req.Empty(f.writer.written())
}

func TestWS_SetupRejectsBadToken(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.session.dispatch(context.Background(), frame(EventSetup, map[string]string{"token": "garbage"}))

	frames := f.writer.written()
	req.Len(frames, 1)
	req.Equal(EventError, frames[0].Event)
}

func TestWS_RoomEventsRequireBoundSession(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	// Unbound: every room-scoped event is rejected, none reaches the
	// broker or the typing coordinator.
	f.registry.EXPECT().Lookup(f.session.conn).Return(chat.Principal(""), false).Times(4)

	ctx := context.Background()
	for _, name := range []string{EventJoinRoom, EventTyping, EventStopTyping, EventNewMessage} {
		f.session.dispatch(ctx, frame(name, map[string]string{"chat_id": "room-1", "body": "x"}))
	}

	frames := f.writer.written()
	req.Len(frames, 4)
	for _, env := range frames {
		req.Equal(EventError, env.Event)
	}
}

func TestWS_JoinRoomChecksMembership(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	ctx := context.Background()

	f.registry.EXPECT().Lookup(f.session.conn).Return(chat.Principal("alice"), true).Times(2)

	// Member: joined.
	f.conversations.EXPECT().IsMember(chat.ConversationID("room-1"), chat.Principal("alice")).Return(true, nil)
	f.broker.EXPECT().Join(f.session.conn, chat.ConversationID("room-1"), f.session.sink)
	f.session.dispatch(ctx, frame(EventJoinRoom, map[string]string{"chat_id": "room-1"}))
	req.Empty(f.writer.written())

	// Not a member: rejected, no Join.
	f.conversations.EXPECT().IsMember(chat.ConversationID("room-2"), chat.Principal("alice")).Return(false, nil)
	f.session.dispatch(ctx, frame(EventJoinRoom, map[string]string{"chat_id": "room-2"}))
	frames := f.writer.written()
	req.Len(frames, 1)
	req.Equal(EventError, frames[0].Event)
}

func TestWS_TypingSignalsFlowThroughCoordinator(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	ctx := context.Background()

	f.registry.EXPECT().Lookup(f.session.conn).Return(chat.Principal("alice"), true).Times(3)

	// Two typing frames inside the window produce a single broadcast.
	f.broker.EXPECT().
		Broadcast(gomock.Any(), chat.ConversationID("room-1"), gomock.Any(), f.session.conn).
		Times(2) // one typing-started, one typing-stopped

	f.session.dispatch(ctx, frame(EventTyping, map[string]string{"chat_id": "room-1"}))
	f.session.dispatch(ctx, frame(EventTyping, map[string]string{"chat_id": "room-1"}))
	f.session.dispatch(ctx, frame(EventStopTyping, map[string]string{"chat_id": "room-1"}))
	req.Empty(f.writer.written())
}

func TestWS_NewMessageEchoesPersistedMessageToSender(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	ctx := context.Background()

	f.registry.EXPECT().Lookup(f.session.conn).Return(chat.Principal("alice"), true)
	f.conversations.EXPECT().
		GetConversation(chat.ConversationID("room-1")).
		Return(chat.Conversation{ID: "room-1", Members: []chat.Principal{"alice", "bob"}}, nil)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
	f.conversations.EXPECT().UpdateLatestMessage(chat.ConversationID("room-1"), gomock.Any()).Return(nil)
	f.broker.EXPECT().
		Broadcast(gomock.Any(), chat.ConversationID("room-1"), gomock.Any(), f.session.conn)

	f.session.dispatch(ctx, frame(EventNewMessage, map[string]string{
		"chat_id": "room-1", "body": "hello there",
	}))

	frames := f.writer.written()
	req.Len(frames, 1)
	req.Equal(EventMessageReceived, frames[0].Event)

	var payload MessagePayload
	req.NoError(json.Unmarshal(frames[0].Data, &payload))
	req.Equal("hello there", payload.Body)
	req.Equal("room-1", payload.ChatID)
	req.Equal("alice", payload.Sender)
}

func TestWS_PersistenceFailureReportsErrorNoEcho(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.registry.EXPECT().Lookup(f.session.conn).Return(chat.Principal("alice"), true)
	f.conversations.EXPECT().
		GetConversation(chat.ConversationID("room-1")).
		Return(chat.Conversation{ID: "room-1", Members: []chat.Principal{"alice"}}, nil)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(fmt.Errorf("disk full"))
	// No broadcast expectation: the controller fails on any fan-out.

	f.session.dispatch(context.Background(), frame(EventNewMessage, map[string]string{
		"chat_id": "room-1", "body": "hello",
	}))

	frames := f.writer.written()
	req.Len(frames, 1)
	req.Equal(EventError, frames[0].Event)
}

func TestWS_UnknownEventRejected(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.session.dispatch(context.Background(), frame("teleport", map[string]string{}))

	frames := f.writer.written()
	req.Len(frames, 1)
	req.Equal(EventError, frames[0].Event)
}
