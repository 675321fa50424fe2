package session

import (
	"fmt"
	"sync"

	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/errors"

	"github.com/google/uuid"
)

// Outbound is the handle of one connection: a bounded FIFO drained by the actor's writer.
// The queue is never closed, so a late Send can never panic. Once done is
// closed every Send is refused.
type Outbound struct {
	id    string
	user  domain.UserID
	queue chan event.RealtimeEvent
	done  chan struct{}
	once  sync.Once
}

func NewOutbound(user domain.UserID, size int) *Outbound {
	if size <= 0 {
		size = 1
	}
	return &Outbound{
		id:    uuid.NewString(),
		user:  user,
		queue: make(chan event.RealtimeEvent, size),
		done:  make(chan struct{}),
	}
}

func (o *Outbound) ID() string          { return o.id }
func (o *Outbound) User() domain.UserID { return o.user }

// Send enqueues without blocking.
func (o *Outbound) Send(e event.RealtimeEvent) error {
	select {
	case <-o.done:
		return fmt.Errorf("%w: connection %s of user %s is closing", errors.ErrUnreachable, o.id, o.user)
	default:
	}
	select {
	case o.queue <- e:
		return nil
	case <-o.done:
		return fmt.Errorf("%w: connection %s of user %s is closing", errors.ErrUnreachable, o.id, o.user)
	default:
		return fmt.Errorf("%w: outbound queue of user %s is full", errors.ErrUnreachable, o.user)
	}
}

// Close is idempotent.
func (o *Outbound) Close() {
	o.once.Do(func() { close(o.done) })
}

func (o *Outbound) Done() <-chan struct{} {
	return o.done
}

func (o *Outbound) Closed() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

func (o *Outbound) Events() <-chan event.RealtimeEvent {
	return o.queue
}
