package feed

// State is the lifecycle state of one channel connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Name implements statemachine.State.
func (s State) Name() string {
	return s.String()
}

// Well-known channel names. The set is open; any valid name can be connected.
const (
	ChannelNotifications = "notifications"
	ChannelCampaigns     = "campaigns"
	ChannelDashboard     = "dashboard"
)
