// ABOUTME: Signalable trigger events and the multi-event wait
// ABOUTME: Provides manual/auto reset events with Set, Reset and Pulse semantics
package device

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Infinite disables the WaitAny timeout
const Infinite time.Duration = -1

var (
	// ErrWaitTimeout is returned by WaitAny when no event fired in time
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrWaitObjects is returned by WaitAny for an empty or oversized event set
	ErrWaitObjects = errors.New("invalid wait object count")

	// ErrEventClosed is returned by WaitAny, with the index, when an event
	// in the set was closed
	ErrEventClosed = errors.New("event closed")
)

// Event is a trigger a buffer signals when its play cursor crosses a
// registered offset. A manual-reset event stays signaled until Reset; an
// auto-reset event is cleared by the wait that observes it.
type Event struct {
	mu       sync.Mutex
	manual   bool
	signaled bool
	closed   bool
	waiters  map[*waiter]struct{}
}

// waiter is one WaitAny call registered on a set of events
type waiter struct {
	wake   chan struct{}
	mu     sync.Mutex
	pulsed map[*Event]bool
}

// NewEvent creates an unsignaled event
func NewEvent(manualReset bool) *Event {
	return &Event{
		manual:  manualReset,
		waiters: make(map[*waiter]struct{}),
	}
}

// ManualReset reports whether the event stays signaled until Reset
func (e *Event) ManualReset() bool {
	return e.manual
}

// Set signals the event and wakes every registered waiter
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.signaled = true
	for w := range e.waiters {
		w.poke()
	}
}

// Reset clears the signaled state
func (e *Event) Reset() {
	e.mu.Lock()
	e.signaled = false
	e.mu.Unlock()
}

// Pulse releases the waiters currently blocked on the event and leaves it
// unsignaled. A pulse with no waiter registered is lost.
func (e *Event) Pulse() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.signaled = false
	for w := range e.waiters {
		w.mu.Lock()
		w.pulsed[e] = true
		w.mu.Unlock()
		w.poke()
	}
}

// Signaled reports the current state without consuming it
func (e *Event) Signaled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaled
}

// Close marks the event dead; later Set and Pulse calls are ignored and
// blocked waiters are released with ErrEventClosed
func (e *Event) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.signaled = false
	for w := range e.waiters {
		w.poke()
	}
}

// Closed reports whether Close was called
func (e *Event) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Event) register(w *waiter) {
	e.mu.Lock()
	e.waiters[w] = struct{}{}
	e.mu.Unlock()
}

func (e *Event) unregister(w *waiter) {
	e.mu.Lock()
	delete(e.waiters, w)
	e.mu.Unlock()
}

// consume reports whether the event is signaled for w, clearing auto-reset
// state and pulses as it goes
func (e *Event) consume(w *waiter) (fired, closed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w.mu.Lock()
	pulsed := w.pulsed[e]
	delete(w.pulsed, e)
	w.mu.Unlock()

	if e.closed {
		return false, true
	}
	if e.signaled {
		if !e.manual {
			e.signaled = false
		}
		return true, false
	}
	return pulsed, false
}

func (w *waiter) poke() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// WaitAny blocks until one of events is signaled and returns its index.
// When several are signaled the lowest index wins. A negative timeout
// (Infinite) waits forever.
func WaitAny(events []*Event, timeout time.Duration) (int, error) {
	if len(events) == 0 || len(events) > MaxWaitObjects {
		return -1, fmt.Errorf("%w: %d", ErrWaitObjects, len(events))
	}

	w := &waiter{
		wake:   make(chan struct{}, 1),
		pulsed: make(map[*Event]bool),
	}
	for _, e := range events {
		e.register(w)
	}
	defer func() {
		for _, e := range events {
			e.unregister(w)
		}
	}()

	var expired <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		for i, e := range events {
			fired, closed := e.consume(w)
			if fired {
				return i, nil
			}
			if closed {
				return i, ErrEventClosed
			}
		}

		select {
		case <-w.wake:
		case <-expired:
			return -1, ErrWaitTimeout
		}
	}
}
