// Package feed maintains the authenticated WebSocket connections of a
// delivery-status feed, one per logical channel, and republishes their
// frames as per-channel message streams.
//
// A Registry owns every channel connection. Each connection drives its
// transport through a single event handler:
//   - credentials: the TokenSource answered; the channel dials and becomes
//     Connecting, or stays Disconnected if there is no usable credential
//   - opened: state becomes Connected and the retry counter resets
//   - message: the frame is handed to the router
//   - closed, failed: state becomes Disconnected and the ReconnectPolicy
//     decides whether a reconnect is scheduled
//   - retry: a scheduled reconnect fires and the channel is reopened
//
// State changes go through a statemachine transition table, so Connected is
// only reachable from Connecting. Events from superseded transports and
// timers are ignored. Failures never
// reach the caller; they are observable only through the state stream.
package feed
