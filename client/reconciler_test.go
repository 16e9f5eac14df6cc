package client

import (
	"fmt"
	"log/slog"
	"testing"

	"chat-relay/transport"

	"github.com/stretchr/testify/require"
)

func message(id, chatID, body string) transport.MessagePayload {
	return transport.MessagePayload{ID: id, ChatID: chatID, Sender: "bob", Body: body}
}

func TestReconciler_OpenConversationAppendsToHistory(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())
	r.Open("room-1")

	appended := r.OnMessage(message("m1", "room-1", "hello"))

	req.True(appended)
	req.Len(r.History(), 1)
	req.Empty(r.Notifications())
}

func TestReconciler_OtherConversationQueuesNotification(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())
	r.Open("room-1")

	appended := r.OnMessage(message("m1", "room-2", "psst"))

	req.False(appended)
	req.Empty(r.History())
	notifications := r.Notifications()
	req.Len(notifications, 1)
	req.Equal("room-2", notifications[0].Message.ChatID)
}

func TestReconciler_NoOpenConversationQueuesEverything(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())

	r.OnMessage(message("m1", "room-1", "a"))
	r.OnMessage(message("m2", "room-2", "b"))

	req.Len(r.Notifications(), 2)
}

func TestReconciler_DuplicateDeliveryCountsOnce(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())

	r.OnMessage(message("m1", "room-1", "a"))
	r.OnMessage(message("m1", "room-1", "a"))
	req.Len(r.Notifications(), 1)

	r.Open("room-1")
	r.OnMessage(message("m2", "room-1", "b"))
	r.OnMessage(message("m2", "room-1", "b"))
	req.Len(r.History(), 1)
}

func TestReconciler_LiveMessageThenHistoryPageNotDuplicated(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())
	r.Open("room-1")

	// The message arrives over the socket first, then again inside the
	// fetched history page.
	r.OnMessage(message("m1", "room-1", "hello"))
	r.SeedHistory("room-1", []transport.MessagePayload{
		message("m1", "room-1", "hello"),
		message("m0", "room-1", "earlier"),
	})

	req.Len(r.History(), 2)
}

func TestReconciler_OpenClearsThatConversationsNotifications(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())

	r.OnMessage(message("m1", "room-1", "a"))
	r.OnMessage(message("m2", "room-2", "b"))

	r.Open("room-1")

	notifications := r.Notifications()
	req.Len(notifications, 1)
	req.Equal("room-2", notifications[0].Message.ChatID)
}

func TestReconciler_CloseKeepsQueueingForClosedConversation(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())
	r.Open("room-1")
	r.OnMessage(message("m1", "room-1", "on screen"))

	r.Close()
	req.Equal("", r.OpenConversation())

	// Still joined to the room: the next message queues.
	r.OnMessage(message("m2", "room-1", "off screen"))
	req.Len(r.Notifications(), 1)
}

func TestReconciler_QueueKeepsArrivalOrder(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())

	for i := 0; i < 5; i++ {
		r.OnMessage(message(fmt.Sprintf("m%d", i), "room-1", "x"))
	}

	notifications := r.Notifications()
	req.Len(notifications, 5)
	for i, n := range notifications {
		req.Equal(fmt.Sprintf("m%d", i), n.Message.ID)
	}
}

func TestReconciler_ReopenStartsFreshHistory(t *testing.T) {
	req := require.New(t)
	r := NewNotificationReconciler(slog.Default())

	r.Open("room-1")
	r.OnMessage(message("m1", "room-1", "a"))

	r.Open("room-2")
	req.Empty(r.History())

	// The same id can appear again after a reopen; the fetched page is
	// the source of truth now.
	r.Open("room-1")
	r.SeedHistory("room-1", []transport.MessagePayload{message("m1", "room-1", "a")})
	req.Len(r.History(), 1)
}
