package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"realtime-hub/contract"
	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/errors"

	"github.com/gorilla/websocket"
)

const (
	invalidFormatPrefix  = "Invalid message format: "
	invalidClientMessage = "Invalid message type for client"
)

type Config struct {
	PingInterval       time.Duration
	PongWait           time.Duration
	WriteWait          time.Duration
	MaxMessageSize     int64
	OutboundBufferSize int
	// NackUnreachable replies with an Error when a chat recipient is offline.
	NackUnreachable bool
	// CloseReplaced stops a connection as soon as a newer one of the same user registers.
	CloseReplaced bool
}

func DefaultConfig() Config {
	return Config{
		PingInterval:       30 * time.Second,
		PongWait:           60 * time.Second,
		WriteWait:          10 * time.Second,
		MaxMessageSize:     64 * 1024,
		OutboundBufferSize: 256,
		CloseReplaced:      true,
	}
}

// Actor owns one client connection from registration to teardown.
// The read loop runs on the caller's goroutine; a dedicated writer drains the
// outbound handle so that every recipient observes events in enqueue order.
type Actor struct {
	log       *slog.Logger
	config    Config
	user      domain.UserID
	transport Transport
	registry  contract.IRegistry
	router    contract.IRouter
	outbound  *Outbound
	state     atomic.Int32
}

func NewActor(log *slog.Logger,
	config Config,
	user domain.UserID,
	transport Transport,
	registry contract.IRegistry,
	router contract.IRouter) *Actor {
	a := &Actor{
		log:       log.With("user_id", user),
		config:    config,
		user:      user,
		transport: transport,
		registry:  registry,
		router:    router,
		outbound:  NewOutbound(user, config.OutboundBufferSize),
	}
	a.state.Store(int32(domain.Connecting))
	return a
}

func (a *Actor) State() domain.ConnectionState {
	return domain.ConnectionState(a.state.Load())
}

func (a *Actor) Handle() contract.Handle {
	return a.outbound
}

// Run blocks until the connection is closed by the peer, by a newer
// connection of the same user, or by ctx. Only unexpected transport failures
// are returned.
func (a *Actor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.MaxMessageSize > 0 {
		a.transport.SetReadLimit(a.config.MaxMessageSize)
	}
	a.extendReadDeadline()
	a.transport.SetPongHandler(func(string) error {
		a.extendReadDeadline()
		return nil
	})
	a.transport.SetPingHandler(func(data string) error {
		a.extendReadDeadline()
		err := a.transport.WriteControl(websocket.PongMessage, []byte(data), a.deadline(a.config.WriteWait))
		if stderrors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		a.write(ctx)
	}()

	replaced := a.registry.Add(ctx, a.user, a.outbound)
	a.state.Store(int32(domain.Active))
	a.log.Debug("Connection active", "connection", a.outbound.ID())
	if replaced != nil && replaced.ID() != a.outbound.ID() && a.config.CloseReplaced {
		replaced.Close()
	}

	err := a.read(ctx)

	a.state.Store(int32(domain.Closing))
	// Teardown must complete even when the parent context is gone.
	a.registry.RemoveHandle(context.WithoutCancel(ctx), a.user, a.outbound.ID())
	a.outbound.Close()
	<-writerDone
	_ = a.transport.Close()
	a.state.Store(int32(domain.Closed))
	a.log.Debug("Connection closed", "connection", a.outbound.ID(), "error", err)
	return err
}

func (a *Actor) read(ctx context.Context) error {
	for {
		kind, data, err := a.transport.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || a.outbound.Closed() {
				return nil
			}
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read from user %s: %w", a.user, err)
		}
		a.extendReadDeadline()

		if kind != websocket.TextMessage {
			a.log.Debug("Non-text frame ignored", "type", kind, "size", len(data))
			continue
		}
		a.dispatch(ctx, data)
	}
}

func (a *Actor) dispatch(ctx context.Context, data []byte) {
	e, err := event.Decode(data)
	if err != nil {
		a.reply(event.Error{Message: invalidFormatPrefix + err.Error()})
		return
	}
	if event.IsServerOnly(e) {
		a.reply(event.Error{Message: invalidClientMessage})
		return
	}

	switch evt := e.(type) {
	case event.Chat:
		if err := a.router.RouteChat(ctx, a.user, evt.To, evt.Content); err != nil {
			a.routeFailed(evt, err)
		}
	case event.Addressed:
		if err := a.router.RouteSignal(ctx, a.user, evt); err != nil {
			a.routeFailed(evt, err)
		}
	}
}

func (a *Actor) routeFailed(e event.Addressed, err error) {
	a.log.Debug("Event not delivered", "kind", e.Kind(), "to", e.Recipient(), "error", err)
	if a.config.NackUnreachable && stderrors.Is(err, errors.ErrUnreachable) {
		a.reply(event.Error{Message: fmt.Sprintf("User %s is not connected", e.Recipient())})
	}
}

// reply enqueues on the actor's own handle so that replies keep their place in the FIFO.
func (a *Actor) reply(e event.Error) {
	if err := a.outbound.Send(e); err != nil {
		a.log.Debug("Reply dropped", "message", e.Message, "error", err)
	}
}

func (a *Actor) write(ctx context.Context) {
	defer func() { _ = a.transport.Close() }()

	var ping <-chan time.Time
	if a.config.PingInterval > 0 {
		ticker := time.NewTicker(a.config.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case e := <-a.outbound.Events():
			if err := a.writeEvent(e); err != nil {
				a.log.Debug("Write failed", "kind", e.Kind(), "error", err)
				return
			}
		case <-ping:
			if err := a.transport.WriteControl(websocket.PingMessage, nil, a.deadline(a.config.WriteWait)); err != nil {
				a.log.Debug("Ping failed", "error", err)
				return
			}
		case <-a.outbound.Done():
			a.flush()
			return
		case <-ctx.Done():
			a.flush()
			return
		}
	}
}

// flush writes whatever is still queued, then says goodbye.
func (a *Actor) flush() {
	for {
		select {
		case e := <-a.outbound.Events():
			if err := a.writeEvent(e); err != nil {
				return
			}
		default:
			closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = a.transport.WriteControl(websocket.CloseMessage, closing, a.deadline(a.config.WriteWait))
			return
		}
	}
}

func (a *Actor) writeEvent(e event.RealtimeEvent) error {
	payload, err := event.Encode(e)
	if err != nil {
		a.log.Warn("Event not encodable", "kind", e.Kind(), "error", err)
		return nil
	}
	if err := a.transport.SetWriteDeadline(a.deadline(a.config.WriteWait)); err != nil {
		return err
	}
	return a.transport.WriteMessage(websocket.TextMessage, payload)
}

func (a *Actor) extendReadDeadline() {
	_ = a.transport.SetReadDeadline(a.deadline(a.config.PongWait))
}

// deadline returns the zero time, meaning no deadline, for a non-positive wait.
func (a *Actor) deadline(wait time.Duration) time.Time {
	if wait <= 0 {
		return time.Time{}
	}
	return time.Now().Add(wait)
}
