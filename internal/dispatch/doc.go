// Package dispatch owns the channel-multiplexing message dispatcher.
//
// Ownership boundary:
// - Dispatcher: the single stream, the outbound queue, the send/receive
//   loops, and the channel negotiation state machine
// - Channel: the externally-owned handle for one logical conversation
// - weak channel registries keyed by request id (pending) and channel id
//   (bound)
//
// All negotiation-state transitions happen on the receive loop's goroutine.
// Callers on other goroutines interact only through thread-safe enqueue
// (ScheduleSend) and the startup handoff cell.
package dispatch
