// Package client implements the relay's reference client: a websocket
// session plus the notification reconciler that decides whether an
// incoming message lands in the open conversation or the notification
// queue.
package client

import (
	"log/slog"
	"sync"

	"chat-relay/transport"
)

// Notification is a queued message for a conversation that is not
// currently on screen.
type Notification struct {
	Message transport.MessagePayload
}

// NotificationReconciler routes delivered messages by the currently open
// conversation. Messages for the open conversation append to its local
// history; everything else queues as a notification. Both sides dedup by
// message id, so a message arriving over the socket and again in a
// fetched history page counts once.
//
// Closing a conversation only clears the open pointer; the session stays
// joined to the room, which is what makes queued notifications for that
// room possible at all.
type NotificationReconciler struct {
	mu      sync.Mutex
	open    string
	history []transport.MessagePayload
	inHist  map[string]struct{}
	queue   []Notification
	queued  map[string]struct{}
	log     *slog.Logger
}

func NewNotificationReconciler(log *slog.Logger) *NotificationReconciler {
	return &NotificationReconciler{
		inHist: make(map[string]struct{}),
		queued: make(map[string]struct{}),
		log:    log,
	}
}

// OnMessage routes one delivered message. Returns true when the message
// went to the open conversation's history.
func (r *NotificationReconciler) OnMessage(m transport.MessagePayload) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.open != "" && m.ChatID == r.open {
		r.appendHistoryLocked(m)
		return true
	}

	if _, dup := r.queued[m.ID]; dup {
		return false
	}
	r.queued[m.ID] = struct{}{}
	r.queue = append(r.queue, Notification{Message: m})
	r.log.Debug("message queued", "chat_id", m.ChatID, "message_id", m.ID)
	return false
}

// Open switches the on-screen conversation. Queued notifications for it
// are dropped; the caller is expected to follow up with a history fetch
// and feed the page through SeedHistory.
func (r *NotificationReconciler) Open(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.open = chatID
	r.history = r.history[:0]
	r.inHist = make(map[string]struct{})

	kept := r.queue[:0]
	for _, n := range r.queue {
		if n.Message.ChatID == chatID {
			delete(r.queued, n.Message.ID)
			continue
		}
		kept = append(kept, n)
	}
	r.queue = kept
}

// SeedHistory merges a fetched history page into the open conversation.
// Messages already appended live are not duplicated.
func (r *NotificationReconciler) SeedHistory(chatID string, page []transport.MessagePayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != chatID {
		return
	}
	for _, m := range page {
		r.appendHistoryLocked(m)
	}
}

// Close clears the open conversation. Deliberately no room leave: the
// session keeps receiving the room's messages as notifications.
func (r *NotificationReconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = ""
	r.history = r.history[:0]
	r.inHist = make(map[string]struct{})
}

func (r *NotificationReconciler) OpenConversation() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// History returns a copy of the open conversation's local history.
func (r *NotificationReconciler) History() []transport.MessagePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transport.MessagePayload, len(r.history))
	copy(out, r.history)
	return out
}

// Notifications returns a copy of the pending queue, oldest first.
func (r *NotificationReconciler) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.queue))
	copy(out, r.queue)
	return out
}

func (r *NotificationReconciler) appendHistoryLocked(m transport.MessagePayload) {
	if _, dup := r.inHist[m.ID]; dup {
		return
	}
	r.inHist[m.ID] = struct{}{}
	r.history = append(r.history, m)
}
