package dispatch

import (
	"runtime"
	"testing"
	"time"

	"github.com/danmuck/wsmux/internal/testutil/testlog"
)

func TestRegistryPutGetRemove(t *testing.T) {
	testlog.Start(t)
	reg := newChannelRegistry()
	ch := newChannel(func(ScheduledMessage) {})
	reg.put("req-0", ch)

	got, ok := reg.get("req-0")
	if !ok || got != ch {
		t.Fatalf("lookup failed: ok=%v", ok)
	}
	if _, ok := reg.get("missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}
	reg.remove("req-0")
	if _, ok := reg.get("req-0"); ok {
		t.Fatalf("entry should be removed")
	}
	runtime.KeepAlive(ch)
}

func TestRegistryReclaimsDroppedChannels(t *testing.T) {
	testlog.Start(t)
	reg := newChannelRegistry()

	// Register a channel whose only strong reference dies with this scope.
	func() {
		ch := newChannel(func(ScheduledMessage) {})
		reg.put("req-0", ch)
		if _, ok := reg.get("req-0"); !ok {
			t.Fatalf("entry missing while handle is alive")
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		runtime.GC()
		if _, ok := reg.get("req-0"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("entry not reclaimed after handle dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n := reg.live(); n != 0 {
		t.Fatalf("expected 0 live entries, got %d", n)
	}
}

func TestRegistryKeepsLiveChannelOnReusedKey(t *testing.T) {
	testlog.Start(t)
	reg := newChannelRegistry()
	first := newChannel(func(ScheduledMessage) {})
	reg.put("key", first)
	second := newChannel(func(ScheduledMessage) {})
	reg.put("key", second)

	// The stale cleanup for first must not evict second.
	reg.reap("key")
	got, ok := reg.get("key")
	if !ok || got != second {
		t.Fatalf("reused key lost its live channel")
	}
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}
