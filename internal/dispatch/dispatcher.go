package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/wsmux/internal/handoff"
	"github.com/danmuck/wsmux/internal/logging"
	"github.com/danmuck/wsmux/internal/observability"
	"github.com/danmuck/wsmux/internal/transport"
	"github.com/danmuck/wsmux/internal/wire"
)

const defaultQueueDepth = 256

// Dispatcher owns one duplex stream and multiplexes logical channels over
// it. ConnectChannel and ScheduleSend are safe from any goroutine; all
// negotiation state transitions run on the receive loop.
type Dispatcher struct {
	stream   transport.MessageStream
	clientID string
	log      zerolog.Logger

	sendq chan ScheduledMessage

	// pending is keyed by request id while a channel awaits its start
	// response; bound is keyed by the server-issued channel id.
	pending *channelRegistry
	bound   *channelRegistry

	nextRequestID atomic.Uint64
}

// Option adjusts dispatcher construction in Run.
type Option func(*Dispatcher)

// WithLogger replaces the default component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithQueueDepth sets the outbound queue capacity. ScheduleSend blocks once
// the queue is full.
func WithQueueDepth(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sendq = make(chan ScheduledMessage, n)
		}
	}
}

func newDispatcher(stream transport.MessageStream, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		stream:   stream,
		clientID: uuid.NewString(),
		log:      logging.Component("dispatch"),
		sendq:    make(chan ScheduledMessage, defaultQueueDepth),
		pending:  newChannelRegistry(),
		bound:    newChannelRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("client_id", d.clientID).Logger()
	return d
}

// ClientID returns the identifier this dispatcher stamps on every outbound
// frame.
func (d *Dispatcher) ClientID() string { return d.clientID }

// Run dials the stream, builds the dispatcher, publishes it through cell for
// the requesting goroutine, then runs the send and receive loops until the
// stream ends. Queued outbound messages are drained before return. The
// dispatcher does not reconnect; that policy belongs to the caller.
func Run(ctx context.Context, cell *handoff.Cell[*Dispatcher], dial transport.DialFunc, opts ...Option) error {
	stream, err := dial(ctx)
	if err != nil {
		return fmt.Errorf("dispatch: dial: %w", err)
	}
	defer stream.Close()
	// Canceling ctx closes the stream so a blocked Receive unwinds.
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	d := newDispatcher(stream, opts...)
	if err := cell.SetResult(d); err != nil {
		return fmt.Errorf("dispatch: publish dispatcher: %w", err)
	}
	d.log.Info().Msg("dispatcher running")

	recvDone := make(chan struct{})
	sendDone := make(chan struct{})
	go d.sendLoop(ctx, recvDone, sendDone)

	d.receiveLoop(ctx)
	close(recvDone)
	<-sendDone
	d.log.Info().Msg("dispatcher stopped")
	return nil
}

// ConnectChannel starts negotiating a channel for domain. The returned
// handle is owned by the caller and is Unbound until the server answers;
// binding or refusal is reported through the handle's notifications.
func (d *Dispatcher) ConnectChannel(domain string) *Channel {
	requestID := strconv.FormatUint(d.nextRequestID.Add(1)-1, 10)
	ch := newChannel(d.ScheduleSend)
	d.pending.put(requestID, ch)
	d.log.Info().Str("request_id", requestID).Str("domain", domain).Msg("requesting channel")
	d.ScheduleSend(ScheduledMessage{
		Message: wire.ChannelStartRequest{RequestID: requestID, RequestedDomain: domain},
		Channel: wire.NegotiationChannel,
	})
	return ch
}

// ScheduleSend enqueues one outbound message. Safe from any goroutine;
// blocks only when the queue is full. Messages scheduled for the same
// channel are transmitted in call order.
func (d *Dispatcher) ScheduleSend(sm ScheduledMessage) {
	d.sendq <- sm
}

func (d *Dispatcher) sendLoop(ctx context.Context, recvDone <-chan struct{}, sendDone chan<- struct{}) {
	defer close(sendDone)
	for {
		select {
		case sm := <-d.sendq:
			d.writeFrame(ctx, sm)
		case <-recvDone:
			// Stream is ending; drain whatever is already queued.
			for {
				select {
				case sm := <-d.sendq:
					d.writeFrame(ctx, sm)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) writeFrame(ctx context.Context, sm ScheduledMessage) {
	data, err := wire.MarshalFrame(sm.Message, sm.Channel, d.clientID)
	if err != nil {
		d.log.Error().Err(err).Str("channel", sm.Channel).Msg("marshal outbound frame")
		return
	}
	d.log.Debug().Str("channel", sm.Channel).Str("type", sm.Message.Type()).Msg("sending frame")
	if err := d.stream.Send(ctx, data); err != nil {
		d.log.Error().Err(err).Str("channel", sm.Channel).Msg("write frame")
		return
	}
	observability.RecordFrameSent()
}

func (d *Dispatcher) receiveLoop(ctx context.Context) {
	for {
		data, err := d.stream.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.log.Info().Msg("stream ended")
			} else {
				d.log.Error().Err(err).Msg("receive frame")
			}
			return
		}
		observability.RecordFrameReceived()

		frame, err := wire.UnmarshalFrame(data)
		if err != nil {
			d.log.Warn().Err(err).Msg("dropping malformed frame")
			observability.RecordFrameDropped(observability.DropMalformedFrame)
			continue
		}

		msg, err := wire.Decode(frame.Payload)
		if err != nil {
			d.log.Warn().Err(err).Str("channel", frame.Channel).Msg("dropping frame of unknown type")
			observability.RecordFrameDropped(observability.DropUnknownType)
			continue
		}

		if resp, ok := msg.(wire.ChannelStartResponse); ok {
			d.handleStartResponse(resp)
			continue
		}

		ch, ok := d.bound.get(frame.Channel)
		if !ok {
			d.log.Warn().Str("channel", frame.Channel).Str("type", msg.Type()).Msg("message on unknown channel")
			observability.RecordFrameDropped(observability.DropUnknownChannel)
			continue
		}
		d.log.Debug().Str("channel", frame.Channel).Str("type", msg.Type()).Msg("dispatching message")
		ch.deliver(msg)
	}
}

func (d *Dispatcher) handleStartResponse(resp wire.ChannelStartResponse) {
	ch, ok := d.pending.get(resp.RequestID)
	if !ok {
		d.log.Warn().Str("request_id", resp.RequestID).Msg("start response for unknown request")
		observability.RecordFrameDropped(observability.DropStaleRequestID)
		return
	}
	d.pending.remove(resp.RequestID)

	if !resp.Accepted {
		d.log.Info().Str("request_id", resp.RequestID).Msg("channel refused")
		observability.RecordChannelOutcome(observability.OutcomeRefused)
		ch.refuse()
		return
	}

	if !ch.bind(resp.ChannelID) {
		d.log.Info().Str("request_id", resp.RequestID).Str("channel", resp.ChannelID).Msg("channel closed before binding")
		return
	}
	d.bound.put(resp.ChannelID, ch)
	d.log.Info().Str("request_id", resp.RequestID).Str("channel", resp.ChannelID).Msg("channel established")
	observability.RecordChannelOutcome(observability.OutcomeEstablished)
}
