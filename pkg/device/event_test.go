// ABOUTME: Tests for trigger events and WaitAny
// ABOUTME: Tests reset modes, pulse delivery, ordering and timeouts
package device

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWaitAnyAlreadySignaled(t *testing.T) {
	a := NewEvent(false)
	b := NewEvent(true)
	b.Set()

	i, err := WaitAny([]*Event{a, b}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i != 1 {
		t.Errorf("expected index 1, got %d", i)
	}
	if !b.Signaled() {
		t.Error("manual-reset event should stay signaled after a wait")
	}
}

func TestWaitAnyLowestIndexWins(t *testing.T) {
	events := []*Event{NewEvent(true), NewEvent(true), NewEvent(true)}
	events[2].Set()
	events[1].Set()

	i, err := WaitAny(events, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i != 1 {
		t.Errorf("expected index 1, got %d", i)
	}
}

func TestAutoResetConsumed(t *testing.T) {
	e := NewEvent(false)
	e.Set()

	if _, err := WaitAny([]*Event{e}, 0); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if e.Signaled() {
		t.Error("auto-reset event should be cleared by the wait")
	}
	if _, err := WaitAny([]*Event{e}, 10*time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("expected timeout on second wait, got %v", err)
	}
}

func TestWaitAnyWakesOnSet(t *testing.T) {
	e := NewEvent(false)
	go func() {
		time.Sleep(10 * time.Millisecond)
		e.Set()
	}()

	i, err := WaitAny([]*Event{NewEvent(false), e}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i != 1 {
		t.Errorf("expected index 1, got %d", i)
	}
}

func TestPulseReleasesBlockedWaiter(t *testing.T) {
	e := NewEvent(true)
	done := make(chan int, 1)

	go func() {
		i, err := WaitAny([]*Event{e}, time.Second)
		if err != nil {
			i = -1
		}
		done <- i
	}()

	// Keep pulsing until the waiter has registered and been released
	deadline := time.After(time.Second)
	for {
		e.Pulse()
		select {
		case i := <-done:
			if i != 0 {
				t.Errorf("expected index 0, got %d", i)
			}
			if e.Signaled() {
				t.Error("pulse should leave the event unsignaled")
			}
			return
		case <-deadline:
			t.Fatal("waiter was never released by pulse")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPulseWithoutWaiterIsLost(t *testing.T) {
	e := NewEvent(true)
	e.Pulse()

	if _, err := WaitAny([]*Event{e}, 10*time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestClosedEventIgnoresSet(t *testing.T) {
	e := NewEvent(true)
	e.Close()
	e.Set()

	if e.Signaled() {
		t.Error("closed event should not become signaled")
	}
	if !e.Closed() {
		t.Error("expected Closed to report true")
	}
}

func TestWaitAnyObjectCount(t *testing.T) {
	if _, err := WaitAny(nil, 0); !errors.Is(err, ErrWaitObjects) {
		t.Errorf("expected ErrWaitObjects for empty set, got %v", err)
	}

	events := make([]*Event, MaxWaitObjects+1)
	for i := range events {
		events[i] = NewEvent(false)
	}
	if _, err := WaitAny(events, 0); !errors.Is(err, ErrWaitObjects) {
		t.Errorf("expected ErrWaitObjects for oversized set, got %v", err)
	}
}

func TestReset(t *testing.T) {
	e := NewEvent(true)
	e.Set()
	e.Reset()
	if e.Signaled() {
		t.Error("expected event to be cleared")
	}
}

func TestCloseReleasesBlockedWaiter(t *testing.T) {
	live := NewEvent(false)
	dead := NewEvent(false)

	done := make(chan error, 1)
	go func() {
		i, err := WaitAny([]*Event{live, dead}, time.Second)
		if err == nil || i != 1 {
			err = fmt.Errorf("index %d, err %v", i, err)
		}
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	dead.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrEventClosed) {
			t.Errorf("expected ErrEventClosed at index 1, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Close")
	}
}
