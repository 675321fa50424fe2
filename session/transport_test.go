package session

import (
	"net"
	"sync"
	"time"

	"realtime-hub/domain/event"

	"github.com/gorilla/websocket"
)

type frame struct {
	kind int
	data []byte
}

// fakeTransport plays the client side of a websocket in memory.
// Ping frames go through the registered ping handler, close frames surface as a
// normal closure, like gorilla does.
type fakeTransport struct {
	inbound   chan frame
	closed    chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	written     [][]byte
	controls    []frame
	pingHandler func(string) error
	pongHandler func(string) error
	readLimit   int64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan frame, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) Text(payload string) {
	f.inbound <- frame{kind: websocket.TextMessage, data: []byte(payload)}
}

func (f *fakeTransport) Binary(payload []byte) {
	f.inbound <- frame{kind: websocket.BinaryMessage, data: payload}
}

func (f *fakeTransport) Ping(payload string) {
	f.inbound <- frame{kind: websocket.PingMessage, data: []byte(payload)}
}

func (f *fakeTransport) Hangup() {
	f.inbound <- frame{kind: websocket.CloseMessage}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	for {
		select {
		case <-f.closed:
			return 0, nil, net.ErrClosed
		case fr := <-f.inbound:
			switch fr.kind {
			case websocket.PingMessage:
				f.mu.Lock()
				handler := f.pingHandler
				f.mu.Unlock()
				if err := handler(string(fr.data)); err != nil {
					return 0, nil, err
				}
			case websocket.CloseMessage:
				return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
			default:
				return fr.kind, fr.data, nil
			}
		}
	}
}

func (f *fakeTransport) WriteMessage(kind int, data []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) WriteControl(kind int, data []byte, _ time.Time) error {
	select {
	case <-f.closed:
		return websocket.ErrCloseSent
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, frame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeTransport) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeTransport) SetPingHandler(h func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingHandler = h
}

func (f *fakeTransport) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pongHandler = h
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) IsClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// Events decodes every text frame written so far.
func (f *fakeTransport) Events() []event.RealtimeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]event.RealtimeEvent, 0, len(f.written))
	for _, raw := range f.written {
		e, err := event.Decode(raw)
		if err != nil {
			panic(err)
		}
		events = append(events, e)
	}
	return events
}

func (f *fakeTransport) Controls(kind int) []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []frame
	for _, c := range f.controls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}
