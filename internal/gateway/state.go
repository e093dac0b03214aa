package gateway

import "fmt"

// State is a connection's lifecycle stage.
type State int32

const (
	Disconnected State = iota
	Connecting
	AwaitingHello
	Handshaking
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingHello:
		return "awaiting hello"
	case Handshaking:
		return "handshaking"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
