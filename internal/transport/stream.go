// Package transport owns the duplex message-stream boundary between the
// dispatcher and the network.
//
// Ownership boundary:
// - MessageStream contract consumed by the dispatcher loops
// - websocket implementation and dial factory
package transport

import "context"

// MessageStream is a connected duplex stream of discrete frames. Receive
// returns io.EOF once the peer has closed the stream; any other error is a
// transport failure. Implementations must allow one concurrent sender and
// one concurrent receiver.
type MessageStream interface {
	Send(ctx context.Context, frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// DialFunc establishes the underlying stream. The dispatcher factory consumes
// one of these so tests and callers choose the transport.
type DialFunc func(ctx context.Context) (MessageStream, error)
