// Package stream provides replay-latest streams.
//
// Latest holds a current value and replays it to new subscribers. Each
// subscriber is backed by a growable Queue, so Set never blocks and never
// drops a value; a slow subscriber only grows its own queue.
package stream
