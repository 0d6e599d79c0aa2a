// Package sync provides synchronisation primitives not available in the
// standard library's package of the same name.
package sync

import (
	"context"
	"errors"
	"sync"
)

// A Toggle allows for Wait()ing until a condition is true. Unlike a broadcast
// mechanism that may be missed if waiting begins after a signal, waiting on an
// already "on" Toggle returns immediately.
//
// The zero value for a Toggle is equivalent to Set(false). A Toggle MUST NOT be
// copied as it contains a sync.Mutex.
//
// While the Toggle is on, its current channel is closed, unblocking all
// receivers. Turning it off replaces the channel with a new, open one.
type Toggle struct {
	mu     sync.Mutex
	state  bool
	closed bool

	// MUST NOT be accessed directly; use onChanWhenAlreadyLocked().
	on chan struct{}
}

// onChanWhenAlreadyLocked returns t.on, make()ing it if nil.
func (t *Toggle) onChanWhenAlreadyLocked() chan struct{} {
	if t.on == nil {
		t.on = make(chan struct{})
	}
	return t.on
}

// ErrToggleClosed is returned by Toggle.Wait() if Toggle.Close() was called.
var ErrToggleClosed = errors.New("toggle closed")

// Close closes the Toggle. All Wait()ers, current and future, unblock and
// return ErrToggleClosed. Calls to Set() after Close() are ignored, and Close
// is idempotent.
func (t *Toggle) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	if !t.state {
		close(t.onChanWhenAlreadyLocked())
	}
}

// Wait blocks until the Toggle is Set() to true, or until it is closed. If the
// last call to Set() was Set(true) then Wait unblocks immediately.
func (t *Toggle) Wait(ctx context.Context) error {
	t.mu.Lock()
	ch := t.onChanWhenAlreadyLocked()
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrToggleClosed
	}
	return nil
}

// Set sets the state of the Toggle. If the state is true, all current and
// future calls to Wait() will unblock. Calls to Set are idempotent.
func (t *Toggle) Set(state bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || state == t.state {
		return
	}
	t.state = state

	if state {
		close(t.onChanWhenAlreadyLocked())
	} else {
		t.on = make(chan struct{})
	}
}

// State returns the last value sent to Set(), or false if Set() is yet to be
// called.
func (t *Toggle) State() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
