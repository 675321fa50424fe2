package domain

// ConnectionState is the lifecycle of a single connection actor.
// Transitions only move forward: Connecting -> Active -> Closing -> Closed.
type ConnectionState int32

const (
	Connecting ConnectionState = iota
	Active
	Closing
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Active:
		return "ACTIVE"
	case Closing:
		return "CLOSING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
