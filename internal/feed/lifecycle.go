package feed

import (
	"context"

	"github.com/dmitrymomot/saaskit/pkg/statemachine"
)

// Lifecycle triggers
const (
	triggerDial  = statemachine.StringEvent("dial")  // transport created
	triggerOpen  = statemachine.StringEvent("open")  // handshake completed
	triggerDrop  = statemachine.StringEvent("drop")  // transport ended
	triggerClose = statemachine.StringEvent("close") // torn down for good
)

// newLifecycle builds the transition table of c. There is no way from
// Disconnected to Connected that skips Connecting. Guards and actions run
// with c.mu held.
func newLifecycle(c *channelConnection) statemachine.StateMachine {
	live := statemachine.WithGuard(c.isLive)
	publish := statemachine.WithAction(c.publishState)

	return statemachine.MustNew(Disconnected,
		statemachine.WithTransition(Disconnected, Connecting, triggerDial, live, publish),
		statemachine.WithTransition(Connecting, Connected, triggerOpen, live, publish),
		statemachine.WithTransition(Connecting, Disconnected, triggerDrop, live, publish),
		statemachine.WithTransition(Connected, Disconnected, triggerDrop, live, publish),
		statemachine.WithTransition(Disconnected, Disconnected, triggerClose),
		statemachine.WithTransition(Connecting, Disconnected, triggerClose, publish),
		statemachine.WithTransition(Connected, Disconnected, triggerClose, publish),
	)
}

// isLive rejects triggers from a superseded generation or a closed channel.
// The trigger data is the generation it was raised for.
func (c *channelConnection) isLive(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	gen, ok := data.(uint64)
	return ok && !c.closed && gen == c.gen
}

func (c *channelConnection) publishState(_ context.Context, from, to statemachine.State, _ statemachine.Event, _ any) error {
	c.logger.Debug("state change", "from", from.Name(), "to", to.Name())
	c.states.Set(to.(State))
	return nil
}

// fire applies a lifecycle trigger. Must be called with mu held.
func (c *channelConnection) fire(trigger statemachine.Event, gen uint64) {
	if err := c.fsm.Fire(context.Background(), trigger, gen); err != nil {
		c.logger.Warn("state transition rejected", "trigger", trigger.Name(), "error", err)
	}
}

func (c *channelConnection) current() State {
	return c.fsm.Current().(State)
}
