package dispatch

import (
	"errors"
	"sync"

	"github.com/danmuck/wsmux/internal/observability"
	"github.com/danmuck/wsmux/internal/wire"
)

var (
	// ErrNotReady reports a send on a channel still awaiting negotiation.
	ErrNotReady = errors.New("dispatch: channel not yet bound")
	// ErrClosed reports a send on a channel after close or refusal.
	ErrClosed = errors.New("dispatch: channel already closed")
)

// ScheduledMessage pairs an outbound message with the channel id it must be
// tagged with before transmission.
type ScheduledMessage struct {
	Message wire.Message
	Channel string
}

// Channel is one logical conversation multiplexed over the shared stream.
// The caller of Dispatcher.ConnectChannel owns the handle; the dispatcher
// keeps only weak references, so dropping the handle is enough to
// unsubscribe. Notifications fire on the dispatcher's receive goroutine.
type Channel struct {
	schedule func(ScheduledMessage)

	mu     sync.Mutex
	id     string
	closed bool

	establishedFns []func()
	refusedFns     []func()
	closedFns      []func()
	messageFns     []func(wire.Message)
}

func newChannel(schedule func(ScheduledMessage)) *Channel {
	return &Channel{schedule: schedule}
}

// ID returns the server-issued channel identifier, or "" while unbound.
func (c *Channel) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// OnEstablished registers fn to run once the channel binds to a server-issued
// id. Listeners registered after the transition are not replayed.
func (c *Channel) OnEstablished(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.establishedFns = append(c.establishedFns, fn)
}

// OnRefused registers fn to run if the server denies the channel request.
func (c *Channel) OnRefused(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refusedFns = append(c.refusedFns, fn)
}

// OnClosed registers fn to run when the channel closes, locally or remotely.
func (c *Channel) OnClosed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closedFns = append(c.closedFns, fn)
}

// OnMessage registers fn to run for each inbound message on this channel.
func (c *Channel) OnMessage(fn func(wire.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageFns = append(c.messageFns, fn)
}

// RequestSend queues msg for transmission tagged with this channel's id.
// Fails with ErrNotReady before binding and ErrClosed after close or
// refusal; both are caller-contract violations, never silently queued.
func (c *Channel) RequestSend(msg wire.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.id == "" {
		c.mu.Unlock()
		return ErrNotReady
	}
	id := c.id
	c.mu.Unlock()

	c.schedule(ScheduledMessage{Message: msg, Channel: id})
	return nil
}

// Close tears the channel down from this side: a channel-end message is
// queued (when bound) and the closed notification fires. Safe to call more
// than once; calls after the first are no-ops.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	id := c.id
	fns := append([]func(){}, c.closedFns...)
	c.mu.Unlock()

	if id != "" {
		c.schedule(ScheduledMessage{Message: wire.ChannelEnd{}, Channel: id})
	}
	observability.RecordChannelOutcome(observability.OutcomeClosed)
	for _, fn := range fns {
		fn()
	}
}

// bind records the server-issued id and fires established. Closed is
// terminal: a late accept for a channel the caller already closed reports
// false and fires nothing. Receive loop only.
func (c *Channel) bind(id string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.id = id
	fns := append([]func(){}, c.establishedFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}

// refuse marks the negotiation as denied: terminal without ever binding.
// Receive loop only.
func (c *Channel) refuse() {
	c.mu.Lock()
	c.closed = true
	fns := append([]func(){}, c.refusedFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// deliver hands one decoded inbound message to the channel. A channel-end
// triggers the closed transition instead of a message notification. Receive
// loop only.
func (c *Channel) deliver(msg wire.Message) {
	if _, isEnd := msg.(wire.ChannelEnd); isEnd {
		c.closeRemote()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fns := append([]func(wire.Message){}, c.messageFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// closeRemote handles a peer-initiated teardown: no channel-end is echoed
// back.
func (c *Channel) closeRemote() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fns := append([]func(){}, c.closedFns...)
	c.mu.Unlock()

	observability.RecordChannelOutcome(observability.OutcomeClosed)
	for _, fn := range fns {
		fn()
	}
}
