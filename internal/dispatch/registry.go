package dispatch

import (
	"runtime"
	"sync"
	"weak"
)

// channelRegistry is a weak-valued map from key to Channel. The dispatcher
// never extends a Channel's lifetime: once the owning caller drops its
// handle, the entry is reclaimed without an explicit unsubscribe — eagerly by
// a GC cleanup hook, and lazily when a dead pointer is found on lookup.
type channelRegistry struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[Channel]
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{entries: make(map[string]weak.Pointer[Channel])}
}

func (r *channelRegistry) put(key string, ch *Channel) {
	r.mu.Lock()
	r.entries[key] = weak.Make(ch)
	r.mu.Unlock()
	runtime.AddCleanup(ch, r.reap, key)
}

func (r *channelRegistry) get(key string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ptr, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	ch := ptr.Value()
	if ch == nil {
		delete(r.entries, key)
		return nil, false
	}
	return ch, true
}

func (r *channelRegistry) remove(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// live counts entries whose channel is still reachable.
func (r *channelRegistry) live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ptr := range r.entries {
		if ptr.Value() != nil {
			n++
		}
	}
	return n
}

// reap removes key if its channel has been reclaimed. Runs from the GC's
// cleanup goroutine; a key re-used for a live channel is left alone.
func (r *channelRegistry) reap(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ptr, ok := r.entries[key]; ok && ptr.Value() == nil {
		delete(r.entries, key)
	}
}
