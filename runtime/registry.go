package runtime

import (
	"context"
	"log/slog"
	"sync"

	"realtime-hub/contract"
	"realtime-hub/domain"

	"github.com/samber/lo"
)

// Registry is the single source of truth for who is online.
// It maps a user to the handle of their current connection. Entries are
// lookup references only: removing one never closes the connection behind it.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[domain.UserID]contract.Handle
	listener contract.PresenceListener
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[domain.UserID]contract.Handle),
	}
}

// Notify sets the listener fired after every effective Add or Remove.
func (r *Registry) Notify(listener contract.PresenceListener) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = listener
	return r
}

// Add inserts or replaces the entry of a user and returns the replaced handle, if any.
// The presence announcement runs after the lock is released so that fan-out
// never serializes on registry contention.
func (r *Registry) Add(ctx context.Context, user domain.UserID, handle contract.Handle) contract.Handle {
	r.mu.Lock()
	previous := r.sessions[user]
	r.sessions[user] = handle
	listener := r.listener
	r.mu.Unlock()

	if previous != nil && previous.ID() != handle.ID() {
		r.log.Info("Connection replaced", "user_id", user, "previous", previous.ID(), "current", handle.ID())
	}
	if listener != nil {
		listener.OnJoin(ctx, user, handle)
	}
	return previous
}

// Remove deletes the entry of a user. Removing an absent user is a no-op and announces nothing.
func (r *Registry) Remove(ctx context.Context, user domain.UserID) bool {
	r.mu.Lock()
	_, ok := r.sessions[user]
	delete(r.sessions, user)
	listener := r.listener
	r.mu.Unlock()

	if ok && listener != nil {
		listener.OnLeave(ctx, user)
	}
	return ok
}

// RemoveHandle deletes the entry of a user only while it still points at handleID.
// A connection that has been replaced can then tear down without evicting its successor.
func (r *Registry) RemoveHandle(ctx context.Context, user domain.UserID, handleID string) bool {
	r.mu.Lock()
	current, ok := r.sessions[user]
	ok = ok && current.ID() == handleID
	if ok {
		delete(r.sessions, user)
	}
	listener := r.listener
	r.mu.Unlock()

	if ok && listener != nil {
		listener.OnLeave(ctx, user)
	}
	return ok
}

func (r *Registry) Lookup(user domain.UserID) (contract.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.sessions[user]
	return handle, ok
}

// Snapshot returns the set of online users. Values are always true.
func (r *Registry) Snapshot() map[domain.UserID]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapValues(r.sessions, func(_ contract.Handle, _ domain.UserID) bool {
		return true
	})
}

// Handles copies every registered handle except the one of the given user.
func (r *Registry) Handles(except domain.UserID) []contract.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]contract.Handle, 0, len(r.sessions))
	for user, handle := range r.sessions {
		if user != except {
			handles = append(handles, handle)
		}
	}
	return handles
}
