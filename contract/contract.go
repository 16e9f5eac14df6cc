//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
)

// EventSink receives events destined for one connected session. Consume
// must never block the caller; implementations drop on backpressure.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// IBroker is the room fan-out surface. Join is trusted: callers confirm
// membership against storage before calling it.
type IBroker interface {
	Join(conn chat.ConnectionID, room chat.ConversationID, sink EventSink)
	Leave(conn chat.ConnectionID, room chat.ConversationID)
	LeaveAll(conn chat.ConnectionID)
	Broadcast(ctx context.Context, room chat.ConversationID, e event.DomainEvent, exclude ...chat.ConnectionID)
}

// IRegistry binds transport connections to principals for their lifetime.
type IRegistry interface {
	Register(conn chat.ConnectionID, sink EventSink)
	Bind(ctx context.Context, conn chat.ConnectionID, p chat.Principal) error
	Lookup(conn chat.ConnectionID) (chat.Principal, bool)
	ConnectionsOf(p chat.Principal) []chat.ConnectionID
	Unregister(conn chat.ConnectionID)
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
