package relay

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"

	"github.com/stretchr/testify/require"
)

// captureSink records everything it consumes; optionally fails every
// Consume to simulate a saturated subscriber.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	fail   bool
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.ErrSlowConsumer
	}
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) received() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func newTestBroker() *RoomBroker {
	return NewRoomBroker(slog.Default(), observability.NewMonitoringManager())
}

func TestBroker_BroadcastReachesEveryJoinedSession(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()
	room := chat.ConversationID("room-1")

	alice, bob := &captureSink{}, &captureSink{}
	broker.Join("conn-alice", room, alice)
	broker.Join("conn-bob", room, bob)

	evt := event.TypingStarted{Chat: room, By: "alice"}
	broker.Broadcast(context.Background(), room, evt)

	req.Equal([]event.DomainEvent{evt}, alice.received())
	req.Equal([]event.DomainEvent{evt}, bob.received())
}

func TestBroker_BroadcastExcludesSenderConnection(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()
	room := chat.ConversationID("room-1")

	alice, bob := &captureSink{}, &captureSink{}
	broker.Join("conn-alice", room, alice)
	broker.Join("conn-bob", room, bob)

	broker.Broadcast(context.Background(), room,
		event.TypingStarted{Chat: room, By: "alice"}, "conn-alice")

	req.Empty(alice.received())
	req.Len(bob.received(), 1)
}

func TestBroker_SlowConsumerLosesEventOthersDoNot(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()
	room := chat.ConversationID("room-1")

	slow := &captureSink{fail: true}
	healthy := &captureSink{}
	broker.Join("conn-slow", room, slow)
	broker.Join("conn-healthy", room, healthy)

	broker.Broadcast(context.Background(), room, event.TypingStarted{Chat: room, By: "x"})

	req.Empty(slow.received())
	req.Len(healthy.received(), 1)
}

func TestBroker_RoomsAreIndependent(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()

	one := &captureSink{}
	other := &captureSink{}
	broker.Join("conn-1", "room-1", one)
	broker.Join("conn-2", "room-2", other)

	broker.Broadcast(context.Background(), "room-1", event.TypingStarted{Chat: "room-1", By: "x"})

	req.Len(one.received(), 1)
	req.Empty(other.received())
}

func TestBroker_LeaveAllStopsDelivery(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()

	s := &captureSink{}
	broker.Join("conn-1", "room-1", s)
	broker.Join("conn-1", "room-2", s)
	req.ElementsMatch([]chat.ConversationID{"room-1", "room-2"}, broker.Rooms("conn-1"))

	broker.LeaveAll("conn-1")

	broker.Broadcast(context.Background(), "room-1", event.TypingStarted{Chat: "room-1", By: "x"})
	broker.Broadcast(context.Background(), "room-2", event.TypingStarted{Chat: "room-2", By: "x"})
	req.Empty(s.received())
	req.Empty(broker.Rooms("conn-1"))
}

func TestBroker_JoinTwiceDeliversOnce(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()

	s := &captureSink{}
	broker.Join("conn-1", "room-1", s)
	broker.Join("conn-1", "room-1", s)

	broker.Broadcast(context.Background(), "room-1", event.TypingStarted{Chat: "room-1", By: "x"})
	req.Len(s.received(), 1)
}

// gateSink parks inside Consume until released, which keeps the room
// lock held for the duration of a Broadcast.
type gateSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s *gateSink) Consume(_ context.Context, _ event.DomainEvent) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestBroker_JoinDuringLastMemberLeaveStillReceives(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()
	room := chat.ConversationID("room-1")
	ctx := context.Background()

	gate := &gateSink{entered: make(chan struct{}), release: make(chan struct{})}
	broker.Join("conn-leaver", room, gate)

	// Park a broadcast inside the room lock so the join and the
	// last-member leave below pile up on it and are released together.
	go broker.Broadcast(ctx, room, event.TypingStarted{Chat: room, By: "x"})
	<-gate.entered

	joiner := &captureSink{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		broker.Join("conn-joiner", room, joiner)
	}()
	go func() {
		defer wg.Done()
		broker.Leave("conn-leaver", room)
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	// The join completed, so this broadcast must reach it: the departing
	// last member must not have taken the room entry down with it.
	evt := event.TypingStarted{Chat: room, By: "y"}
	broker.Broadcast(ctx, room, evt)
	req.Equal([]event.DomainEvent{evt}, joiner.received())
	req.Equal([]chat.ConversationID{room}, broker.Rooms("conn-joiner"))
}

func TestBroker_PerRoomOrderIsIdenticalForAllSubscribers(t *testing.T) {
	req := require.New(t)
	broker := newTestBroker()
	room := chat.ConversationID("room-1")

	alice, bob := &captureSink{}, &captureSink{}
	broker.Join("conn-alice", room, alice)
	broker.Join("conn-bob", room, bob)

	first := event.TypingStarted{Chat: room, By: "a"}
	second := event.TypingStopped{Chat: room, By: "a"}
	broker.Broadcast(context.Background(), room, first)
	broker.Broadcast(context.Background(), room, second)

	req.Equal([]event.DomainEvent{first, second}, alice.received())
	req.Equal([]event.DomainEvent{first, second}, bob.received())
}
