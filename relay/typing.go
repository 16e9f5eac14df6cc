package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/observability"
)

// DefaultTypingWindow mirrors the 3000 ms client debounce.
const DefaultTypingWindow = 3 * time.Second

type typingKey struct {
	Chat chat.ConversationID
	By   chat.Principal
}

type typingState struct {
	timer     *time.Timer
	startedAt time.Time
	conn      chat.ConnectionID // the signaling connection, excluded from fan-out
}

// TypingCoordinator runs the per (conversation, principal) debounce
// state machine: idle -> typing on the first signal, back to idle when
// the window elapses without an explicit stop, or immediately on stop.
//
// A signal while already typing neither re-broadcasts nor extends the
// window: the fired timer checks elapsed time against the timestamp
// captured when typing started, exactly as the historical client did.
// On abrupt disconnect timers are cancelled without a final stop-typing
// broadcast; peers clear the indicator through their own timeout. Both
// behaviors are deliberate, not bugs to fix.
type TypingCoordinator struct {
	mu         sync.Mutex
	states     map[typingKey]*typingState
	broker     contract.IBroker
	window     time.Duration
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	now        func() time.Time
}

func NewTypingCoordinator(log *slog.Logger, broker contract.IBroker, window time.Duration,
	monitoring *observability.MonitoringManager) *TypingCoordinator {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &TypingCoordinator{
		states:     make(map[typingKey]*typingState),
		broker:     broker,
		window:     window,
		log:        log,
		monitoring: monitoring,
		now:        time.Now,
	}
}

// OnTypingSignal handles a `typing` event from a session. The first
// signal broadcasts and arms the single expiry timer; subsequent signals
// inside the window are absorbed.
func (t *TypingCoordinator) OnTypingSignal(ctx context.Context, convID chat.ConversationID,
	p chat.Principal, from chat.ConnectionID) {
	t.monitoring.IncrTypingSignals()
	key := typingKey{Chat: convID, By: p}

	t.mu.Lock()
	if _, already := t.states[key]; already {
		// At most one active timer per key.
		t.mu.Unlock()
		return
	}
	st := &typingState{startedAt: t.now(), conn: from}
	st.timer = time.AfterFunc(t.window, func() { t.expire(key) })
	t.states[key] = st
	t.mu.Unlock()

	t.broker.Broadcast(ctx, convID, event.TypingStarted{Chat: convID, By: p}, from)
}

// OnStopTyping handles an explicit stop (sent on message submit). It
// cancels the pending timer and broadcasts stop-typing unconditionally.
func (t *TypingCoordinator) OnStopTyping(ctx context.Context, convID chat.ConversationID,
	p chat.Principal, from chat.ConnectionID) {
	key := typingKey{Chat: convID, By: p}

	t.mu.Lock()
	if st, ok := t.states[key]; ok {
		st.timer.Stop()
		delete(t.states, key)
	}
	t.mu.Unlock()

	t.broker.Broadcast(ctx, convID, event.TypingStopped{Chat: convID, By: p}, from)
}

// OnDisconnect force-resets every key owned by the principal. No
// broadcast: best-effort only.
func (t *TypingCoordinator) OnDisconnect(p chat.Principal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, st := range t.states {
		if key.By != p {
			continue
		}
		st.timer.Stop()
		delete(t.states, key)
	}
}

// expire fires when the debounce window closed without a refresh. The
// elapsed check against the captured start time is kept from the source
// protocol even though the timer duration already guarantees it.
func (t *TypingCoordinator) expire(key typingKey) {
	t.mu.Lock()
	st, ok := t.states[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	if t.now().Sub(st.startedAt) < t.window {
		t.mu.Unlock()
		return
	}
	delete(t.states, key)
	conn := st.conn
	t.mu.Unlock()

	t.log.Debug("typing window elapsed",
		"conversation_id", string(key.Chat), "principal", string(key.By))
	t.broker.Broadcast(context.Background(), key.Chat,
		event.TypingStopped{Chat: key.Chat, By: key.By}, conn)
}
