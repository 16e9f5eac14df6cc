package relay

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/observability"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTypingCoordinator(t *testing.T, window time.Duration) (*TypingCoordinator, *mocks.MockIBroker) {
	ctrl := gomock.NewController(t)
	broker := mocks.NewMockIBroker(ctrl)
	coordinator := NewTypingCoordinator(slog.Default(), broker, window,
		observability.NewMonitoringManager())
	return coordinator, broker
}

func TestTyping_RepeatedSignalsBroadcastOnce(t *testing.T) {
	coordinator, broker := newTypingCoordinator(t, time.Hour)
	room := chat.ConversationID("room-1")
	started := event.TypingStarted{Chat: room, By: "alice"}

	// A second signal inside the window is absorbed: no second broadcast,
	// no timer restart.
	broker.EXPECT().
		Broadcast(gomock.Any(), room, started, chat.ConnectionID("conn-1")).
		Times(1)

	ctx := context.Background()
	coordinator.OnTypingSignal(ctx, room, "alice", "conn-1")
	coordinator.OnTypingSignal(ctx, room, "alice", "conn-1")
	coordinator.OnTypingSignal(ctx, room, "alice", "conn-1")
}

func TestTyping_WindowExpiryBroadcastsStop(t *testing.T) {
	coordinator, broker := newTypingCoordinator(t, 20*time.Millisecond)
	room := chat.ConversationID("room-1")

	done := make(chan struct{})
	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStarted{Chat: room, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)
	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStopped{Chat: room, By: "alice"}, chat.ConnectionID("conn-1")).
		Do(func(_ context.Context, _ chat.ConversationID, _ event.DomainEvent, _ ...chat.ConnectionID) {
			close(done)
		}).
		Times(1)

	coordinator.OnTypingSignal(context.Background(), room, "alice", "conn-1")

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "typing window never expired")
	}
}

func TestTyping_ExplicitStopCancelsTimer(t *testing.T) {
	coordinator, broker := newTypingCoordinator(t, 20*time.Millisecond)
	room := chat.ConversationID("room-1")

	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStarted{Chat: room, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)
	// Exactly one stop: the explicit one. The timer must not fire a second.
	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStopped{Chat: room, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)

	ctx := context.Background()
	coordinator.OnTypingSignal(ctx, room, "alice", "conn-1")
	coordinator.OnStopTyping(ctx, room, "alice", "conn-1")

	time.Sleep(60 * time.Millisecond)
}

func TestTyping_StopWithoutActiveStateStillBroadcasts(t *testing.T) {
	coordinator, broker := newTypingCoordinator(t, time.Hour)
	room := chat.ConversationID("room-1")

	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStopped{Chat: room, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)

	coordinator.OnStopTyping(context.Background(), room, "alice", "conn-1")
}

func TestTyping_DisconnectResetsSilently(t *testing.T) {
	coordinator, broker := newTypingCoordinator(t, 20*time.Millisecond)
	roomA := chat.ConversationID("room-a")
	roomB := chat.ConversationID("room-b")

	broker.EXPECT().
		Broadcast(gomock.Any(), roomA, event.TypingStarted{Chat: roomA, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)
	broker.EXPECT().
		Broadcast(gomock.Any(), roomB, event.TypingStarted{Chat: roomB, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)
	// No stop-typing broadcast after the disconnect, even once the
	// window would have elapsed.

	ctx := context.Background()
	coordinator.OnTypingSignal(ctx, roomA, "alice", "conn-1")
	coordinator.OnTypingSignal(ctx, roomB, "alice", "conn-1")
	coordinator.OnDisconnect("alice")

	time.Sleep(60 * time.Millisecond)
}

func TestTyping_KeysAreIndependentPerPrincipal(t *testing.T) {
	coordinator, broker := newTypingCoordinator(t, time.Hour)
	room := chat.ConversationID("room-1")

	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStarted{Chat: room, By: "alice"}, chat.ConnectionID("conn-1")).
		Times(1)
	broker.EXPECT().
		Broadcast(gomock.Any(), room, event.TypingStarted{Chat: room, By: "bob"}, chat.ConnectionID("conn-2")).
		Times(1)

	ctx := context.Background()
	coordinator.OnTypingSignal(ctx, room, "alice", "conn-1")
	coordinator.OnTypingSignal(ctx, room, "bob", "conn-2")
}
