package dispatch

import (
	"errors"
	"testing"

	"github.com/danmuck/wsmux/internal/testutil/testlog"
	"github.com/danmuck/wsmux/internal/wire"
)

func TestRequestSendUnbound(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(func(ScheduledMessage) { t.Fatalf("nothing should be scheduled") })
	err := ch.RequestSend(wire.RoomMessage{Sender: "alice", Body: "hi"})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestRequestSendAfterClose(t *testing.T) {
	testlog.Start(t)
	var scheduled []ScheduledMessage
	ch := newChannel(func(sm ScheduledMessage) { scheduled = append(scheduled, sm) })
	ch.bind("abc-123")
	ch.Close()
	if err := ch.RequestSend(wire.RoomMessage{Sender: "alice", Body: "hi"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("expected only the channel-end to be scheduled, got %d", len(scheduled))
	}
	if _, ok := scheduled[0].Message.(wire.ChannelEnd); !ok {
		t.Fatalf("expected channel-end, got %T", scheduled[0].Message)
	}
	if scheduled[0].Channel != "abc-123" {
		t.Fatalf("channel-end tagged with %q", scheduled[0].Channel)
	}
}

func TestBindFiresEstablishedAndSetsID(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(func(ScheduledMessage) {})
	fired := 0
	ch.OnEstablished(func() { fired++ })
	ch.bind("abc-123")
	if fired != 1 {
		t.Fatalf("established fired %d times", fired)
	}
	if got := ch.ID(); got != "abc-123" {
		t.Fatalf("unexpected id %q", got)
	}
}

func TestBindAfterCloseIsRejected(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(func(ScheduledMessage) {})
	established := 0
	ch.OnEstablished(func() { established++ })
	ch.Close()
	if ch.bind("abc-123") {
		t.Fatalf("bind succeeded on a closed channel")
	}
	if established != 0 {
		t.Fatalf("established fired %d times on a closed channel", established)
	}
	if got := ch.ID(); got != "" {
		t.Fatalf("closed channel took id %q", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	var scheduled []ScheduledMessage
	ch := newChannel(func(sm ScheduledMessage) { scheduled = append(scheduled, sm) })
	ch.bind("abc-123")
	closed := 0
	ch.OnClosed(func() { closed++ })
	ch.Close()
	ch.Close()
	ch.Close()
	if closed != 1 {
		t.Fatalf("closed fired %d times", closed)
	}
	if len(scheduled) != 1 {
		t.Fatalf("channel-end scheduled %d times", len(scheduled))
	}
}

func TestCloseUnboundQueuesNothing(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(func(ScheduledMessage) { t.Fatalf("nothing should be scheduled") })
	closed := 0
	ch.OnClosed(func() { closed++ })
	ch.Close()
	if closed != 1 {
		t.Fatalf("closed fired %d times", closed)
	}
}

func TestDeliverChannelEndClosesWithoutMessageFire(t *testing.T) {
	testlog.Start(t)
	var scheduled []ScheduledMessage
	ch := newChannel(func(sm ScheduledMessage) { scheduled = append(scheduled, sm) })
	ch.bind("abc-123")
	closed := 0
	messages := 0
	ch.OnClosed(func() { closed++ })
	ch.OnMessage(func(wire.Message) { messages++ })

	ch.deliver(wire.ChannelEnd{})
	if closed != 1 || messages != 0 {
		t.Fatalf("closed=%d messages=%d", closed, messages)
	}
	// Remote teardown must not echo a channel-end back.
	if len(scheduled) != 0 {
		t.Fatalf("unexpected scheduled messages: %d", len(scheduled))
	}
	if err := ch.RequestSend(wire.RoomMessage{Sender: "a", Body: "b"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDeliverForwardsMessagesInOrder(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(func(ScheduledMessage) {})
	ch.bind("abc-123")
	var got []wire.Message
	ch.OnMessage(func(m wire.Message) { got = append(got, m) })

	ch.deliver(wire.RoomMessage{Sender: "alice", Body: "one"})
	ch.deliver(wire.RoomMessage{Sender: "alice", Body: "two"})
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].(wire.RoomMessage).Body != "one" || got[1].(wire.RoomMessage).Body != "two" {
		t.Fatalf("messages out of order: %+v", got)
	}
}

func TestRefuseIsTerminal(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(func(ScheduledMessage) { t.Fatalf("nothing should be scheduled") })
	refused := 0
	established := 0
	ch.OnRefused(func() { refused++ })
	ch.OnEstablished(func() { established++ })
	ch.refuse()
	if refused != 1 || established != 0 {
		t.Fatalf("refused=%d established=%d", refused, established)
	}
	if err := ch.RequestSend(wire.RoomMessage{Sender: "a", Body: "b"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
