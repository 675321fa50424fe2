//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"realtime-hub/domain"
	"realtime-hub/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
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

// Handle is a shareable reference to one live connection's outbound channel.
// Only the connection actor creates and closes it. Holding a Handle never
// keeps the connection alive.
type Handle interface {
	ID() string
	User() domain.UserID
	// Send enqueues without blocking. It fails with errors.ErrUnreachable
	// when the outbound slot is full or the connection is tearing down.
	Send(e event.RealtimeEvent) error
	// Close asks the owning actor to stop.
	Close()
}

// PresenceListener is notified by the registry after its lock has been released.
type PresenceListener interface {
	OnJoin(ctx context.Context, user domain.UserID, handle Handle)
	OnLeave(ctx context.Context, user domain.UserID)
}

// IDirectory is the read side of the registry.
type IDirectory interface {
	Lookup(user domain.UserID) (Handle, bool)
	Snapshot() map[domain.UserID]bool
	Handles(except domain.UserID) []Handle
}

type IRegistry interface {
	IDirectory
	Add(ctx context.Context, user domain.UserID, handle Handle) Handle
	Remove(ctx context.Context, user domain.UserID) bool
	RemoveHandle(ctx context.Context, user domain.UserID, handleID string) bool
}

type IRouter interface {
	RouteChat(ctx context.Context, from, to domain.UserID, content string) error
	RouteSignal(ctx context.Context, from domain.UserID, signal event.Addressed) error
	Broadcast(ctx context.Context, e event.RealtimeEvent)
}

type IMessageRepository interface {
	Save(ctx context.Context, message domain.StoredMessage) (domain.StoredMessage, error)
	Conversation(ctx context.Context, a, b domain.UserID) ([]domain.StoredMessage, error)
	MarkAsRead(ctx context.Context, id string, reader domain.UserID) error
}

type IChatService interface {
	SendMessage(ctx context.Context, sender, receiver domain.UserID, content string) (domain.StoredMessage, bool, error)
	History(ctx context.Context, user, peer domain.UserID) ([]domain.StoredMessage, error)
	MarkAsRead(ctx context.Context, id string, reader domain.UserID) error
	Presence() map[domain.UserID]bool
}
