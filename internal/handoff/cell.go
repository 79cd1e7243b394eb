// Package handoff provides a single-assignment result cell for publishing a
// value built on one goroutine to waiters on any other.
package handoff

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrAlreadySet = errors.New("handoff: result already set")

// Cell is a one-shot result slot. SetResult succeeds exactly once; every
// current and future waiter then observes the same value. The ready signal is
// not exposed on its own: a Cell always carries a payload.
type Cell[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	set   bool
	value T
}

func NewCell[T any]() *Cell[T] {
	return &Cell[T]{done: make(chan struct{})}
}

// SetResult stores v and marks the cell ready. A second call is rejected with
// ErrAlreadySet and leaves the stored value untouched.
func (c *Cell[T]) SetResult(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return ErrAlreadySet
	}
	c.value = v
	c.set = true
	close(c.done)
	return nil
}

// Ready reports whether a result has been set.
func (c *Cell[T]) Ready() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is set or timeout elapses. A timeout <= 0
// waits indefinitely. The second return value is false if the wait timed
// out, distinguishing the zero value from a legitimate result.
func (c *Cell[T]) Wait(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		<-c.done
		return c.result(), true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return c.result(), true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// WaitContext blocks until the result is set or ctx is done.
func (c *Cell[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.result(), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cell[T]) result() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
