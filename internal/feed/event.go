package feed

import "github.com/rickgao/deliveryfeed/internal/connection"

type eventKind int

const (
	eventCredentials eventKind = iota // credential lookup finished
	eventOpened
	eventMessage
	eventClosed
	eventFailed // dial failed
	eventRetry  // reconnect timer fired
)

func (k eventKind) String() string {
	switch k {
	case eventCredentials:
		return "credentials"
	case eventOpened:
		return "opened"
	case eventMessage:
		return "message"
	case eventClosed:
		return "closed"
	case eventFailed:
		return "failed"
	case eventRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// event is a transport notification or timer firing, tagged with the
// transport generation it belongs to.
type event struct {
	kind eventKind
	gen  uint64
	url  string // endpoint, for eventCredentials
	msg  connection.TimestampedMessage
	err  error
}
