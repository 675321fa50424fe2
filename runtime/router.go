package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"realtime-hub/contract"
	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/errors"
)

// Router forwards addressed events to the connection currently registered for the recipient.
// It never retries, buffers or persists: an offline recipient is reported as unreachable.
type Router struct {
	log       *slog.Logger
	directory contract.IDirectory
}

func NewRouter(log *slog.Logger, directory contract.IDirectory) *Router {
	return &Router{log: log, directory: directory}
}

// RouteChat delivers a Chat addressed to the recipient. The sender is not part of the payload.
func (r *Router) RouteChat(ctx context.Context, from, to domain.UserID, content string) error {
	return r.deliver(ctx, from, event.Chat{To: to, Content: content})
}

// RouteSignal forwards a call-signaling event unchanged.
func (r *Router) RouteSignal(ctx context.Context, from domain.UserID, signal event.Addressed) error {
	if !event.IsSignal(signal) {
		return fmt.Errorf("%w: %s is not a signal", errors.ErrProtocolViolation, signal.Kind())
	}
	return r.deliver(ctx, from, signal)
}

// Broadcast delivers the event to every registered connection.
// One failed recipient never prevents delivery to the others.
func (r *Router) Broadcast(ctx context.Context, e event.RealtimeEvent) {
	for _, h := range r.directory.Handles(domain.Nobody) {
		if ctx.Err() != nil {
			return
		}
		if err := h.Send(e); err != nil {
			r.log.Warn("Broadcast recipient skipped", "user_id", h.User(), "kind", e.Kind(), "error", err)
		}
	}
}

func (r *Router) deliver(_ context.Context, from domain.UserID, e event.Addressed) error {
	to := e.Recipient()
	handle, ok := r.directory.Lookup(to)
	if !ok {
		return fmt.Errorf("%s from %s to %s: %w", e.Kind(), from, to, errors.ErrUnreachable)
	}
	if err := handle.Send(e); err != nil {
		r.log.Debug("Enqueue refused", "from", from, "to", to, "kind", e.Kind(), "error", err)
		return fmt.Errorf("%s from %s to %s: %w", e.Kind(), from, to, errors.ErrUnreachable)
	}
	return nil
}
