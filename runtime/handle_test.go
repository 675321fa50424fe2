package runtime

import (
	"fmt"
	"sync"

	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/errors"

	"github.com/google/uuid"
)

// recordingHandle keeps every event it accepts, or refuses all of them once closed.
type recordingHandle struct {
	mu       sync.Mutex
	id       string
	user     domain.UserID
	received []event.RealtimeEvent
	closed   bool
}

func newHandle(user domain.UserID) *recordingHandle {
	return &recordingHandle{id: uuid.NewString(), user: user}
}

func (h *recordingHandle) ID() string          { return h.id }
func (h *recordingHandle) User() domain.UserID { return h.user }

func (h *recordingHandle) Send(e event.RealtimeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("%w: closed", errors.ErrUnreachable)
	}
	h.received = append(h.received, e)
	return nil
}

func (h *recordingHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *recordingHandle) Events() []event.RealtimeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.RealtimeEvent(nil), h.received...)
}

func (h *recordingHandle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = nil
}
