// Package connection implements the WebSocket transport for feed channels.
//
// A Client owns exactly one gorilla/websocket connection:
//   - Dials the channel endpoint built by Endpoint
//   - Runs a read loop that timestamps every frame
//   - Sends keepalive pings and reports stale connections
//   - Reports the close code and reason when the server hangs up
//
// Clients are single-use. Reconnection is driven by the feed package,
// which dials a fresh Client for every attempt.
package connection
