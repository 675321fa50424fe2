package runtime

import (
	"context"
	"log/slog"
	"slices"

	"realtime-hub/contract"
	"realtime-hub/domain"
	"realtime-hub/domain/event"

	"github.com/samber/lo"
)

// PresenceBroadcaster turns registry membership changes into Presence events.
// Delivery is best-effort: a failed send is logged and the fan-out goes on.
type PresenceBroadcaster struct {
	log       *slog.Logger
	directory contract.IDirectory
}

func NewPresenceBroadcaster(log *slog.Logger, directory contract.IDirectory) *PresenceBroadcaster {
	return &PresenceBroadcaster{log: log, directory: directory}
}

// OnJoin tells every other connection that user is online, then replays the
// current presence of every other online user to the joiner.
func (p *PresenceBroadcaster) OnJoin(ctx context.Context, user domain.UserID, handle contract.Handle) {
	p.fanout(ctx, p.directory.Handles(user), event.Presence{Of: user, Online: true})

	others := lo.Without(lo.Keys(p.directory.Snapshot()), user)
	slices.Sort(others)
	for _, other := range others {
		if err := handle.Send(event.Presence{Of: other, Online: true}); err != nil {
			p.log.Debug("Presence replay dropped", "to", user, "about", other, "error", err)
		}
	}
}

// OnLeave tells every remaining connection that user went offline.
func (p *PresenceBroadcaster) OnLeave(ctx context.Context, user domain.UserID) {
	p.fanout(ctx, p.directory.Handles(user), event.Presence{Of: user, Online: false})
}

func (p *PresenceBroadcaster) fanout(ctx context.Context, handles []contract.Handle, presence event.Presence) {
	for _, h := range handles {
		if ctx.Err() != nil {
			p.log.Debug("Presence fan-out interrupted", "about", presence.Of, "error", ctx.Err())
			return
		}
		if err := h.Send(presence); err != nil {
			p.log.Debug("Presence update dropped", "to", h.User(), "about", presence.Of, "online", presence.Online, "error", err)
		}
	}
}
