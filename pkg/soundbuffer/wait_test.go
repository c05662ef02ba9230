// ABOUTME: Tests for the wait engine and looper
// ABOUTME: Tests markers, interior loop counts, end of stream, cancellation and timeouts
package soundbuffer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func expectOutcome(t *testing.T, ch <-chan WaitOutcome, want WaitResult) {
	t.Helper()
	select {
	case got := <-ch:
		if got.Err != nil {
			t.Fatalf("Wait failed: %v", got.Err)
		}
		if got.Result != want {
			t.Fatalf("Expected %s, got %s", want, got.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return %s", want)
	}
}

func TestWaitUserMarker(t *testing.T) {
	out := newTestOutput(t)
	b, err := New(out, Config{Size: 200, Channels: 1, BitsPerSample: 16})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	defer b.Dispose()

	if err := b.SetNotify(10, 60); err != nil {
		t.Fatalf("SetNotify: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ch := b.WaitAsync(t.Context(), Infinite)
	softOf(t, b).Advance(30) // frame 10 is byte 20
	expectOutcome(t, ch, WaitResult{Kind: WaitUser, Index: 0})

	ch = b.WaitAsync(t.Context(), Infinite)
	softOf(t, b).Advance(100)
	expectOutcome(t, ch, WaitResult{Kind: WaitUser, Index: 1})
}

func TestWaitLoopCount(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	hw := softOf(t, b)

	if err := b.SetLoop(true); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}
	if err := b.SetLoopRange(10, 50); err != nil {
		t.Fatalf("SetLoopRange: %v", err)
	}
	if err := b.SetLoopCount(3); err != nil {
		t.Fatalf("SetLoopCount: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ch := b.WaitAsync(t.Context(), Infinite)

	counter := func(want int) func() bool {
		return func() bool {
			n, _ := b.LoopCounter()
			return n == want
		}
	}

	hw.Advance(55)
	eventually(t, "first loop point", counter(1))
	if pos, _ := b.Position(); pos != 10 {
		t.Fatalf("Expected jump back to 10, got %d", pos)
	}

	hw.Advance(45)
	eventually(t, "second loop point", counter(2))
	if pos, _ := b.Position(); pos != 10 {
		t.Fatalf("Expected jump back to 10, got %d", pos)
	}

	hw.Advance(45)
	eventually(t, "third loop point", counter(3))
	if pos, _ := b.Position(); pos != 55 {
		t.Fatalf("Expected playback to run past the loop point, got %d", pos)
	}

	hw.Advance(45)
	expectOutcome(t, ch, WaitResult{Kind: WaitEndOfStream})

	if b.State() != Stopped {
		t.Errorf("Expected stopped at end of stream, got %s", b.State())
	}
	if pos, _ := b.Position(); pos != 0 {
		t.Errorf("Expected cursor 0 at end of stream, got %d", pos)
	}
	if n, _ := b.LoopCounter(); n != 0 {
		t.Errorf("Expected counter cleared by stop, got %d", n)
	}
}

func TestWaitLoopPointIgnoredWhenLoopOff(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.SetLoopRange(10, 50); err != nil {
		t.Fatalf("SetLoopRange: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ch := b.WaitAsync(t.Context(), Infinite)
	softOf(t, b).Advance(60)
	time.Sleep(20 * time.Millisecond)
	if pos, _ := b.Position(); pos != 60 {
		t.Errorf("Expected no jump with loop off, got %d", pos)
	}

	softOf(t, b).Advance(40)
	expectOutcome(t, ch, WaitResult{Kind: WaitEndOfStream})
}

func TestWaitEndOfStreamByStop(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	softOf(t, b).Advance(20)

	ch := b.WaitAsync(t.Context(), Infinite)
	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	expectOutcome(t, ch, WaitResult{Kind: WaitEndOfStream})

	// paused mid-buffer keeps its state
	if b.State() != Paused {
		t.Errorf("Expected paused, got %s", b.State())
	}
}

func TestWaitRepeatWrapsWithoutEnding(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.Repeat(); err != nil {
		t.Fatalf("Repeat: %v", err)
	}
	softOf(t, b).Advance(50)
	if err := b.SetNotify(5); err != nil {
		t.Fatalf("SetNotify: %v", err)
	}

	ch := b.WaitAsync(t.Context(), Infinite)
	softOf(t, b).Advance(60) // wraps to 10, crossing marker 5
	expectOutcome(t, ch, WaitResult{Kind: WaitUser, Index: 0})

	if b.State() != PlayingLooping {
		t.Errorf("Expected playing-looping, got %s", b.State())
	}
}

func TestWaitTimeout(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	start := time.Now()
	res, err := b.Wait(t.Context(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Kind != WaitTimedOut {
		t.Errorf("Expected timed-out, got %s", res)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Wait returned before the timeout")
	}
}

func TestWaitContextCancel(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	ctx, cancel := context.WithCancel(t.Context())
	ch := b.WaitAsync(ctx, Infinite)
	time.Sleep(10 * time.Millisecond)
	cancel()
	expectOutcome(t, ch, WaitResult{Kind: WaitCancelled})

	// a later wait is not disturbed by the old cancellation
	res, err := b.Wait(t.Context(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Kind != WaitTimedOut {
		t.Errorf("Expected timed-out, got %s", res)
	}
}

func TestWaitCancelledByDispose(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	ch := b.WaitAsync(t.Context(), Infinite)
	time.Sleep(10 * time.Millisecond)
	if err := b.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	expectOutcome(t, ch, WaitResult{Kind: WaitCancelled})
}

func TestWaitInProgress(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	ctx, cancel := context.WithCancel(t.Context())
	first := b.WaitAsync(ctx, Infinite)
	time.Sleep(10 * time.Millisecond)

	if _, err := b.Wait(t.Context(), 0); !errors.Is(err, ErrWaitInProgress) {
		t.Errorf("Expected ErrWaitInProgress, got %v", err)
	}

	cancel()
	expectOutcome(t, first, WaitResult{Kind: WaitCancelled})
}

func TestWaitSeesRebuiltMarkers(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ch := b.WaitAsync(t.Context(), Infinite)
	time.Sleep(10 * time.Millisecond)

	if err := b.SetNotify(30); err != nil {
		t.Fatalf("SetNotify: %v", err)
	}
	softOf(t, b).Advance(40)
	expectOutcome(t, ch, WaitResult{Kind: WaitUser, Index: 0})
}

func TestLooper(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.SetNotify(20, 70); err != nil {
		t.Fatalf("SetNotify: %v", err)
	}
	if err := b.SetLoop(true); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}
	if err := b.SetLoopRange(0, 50); err != nil {
		t.Fatalf("SetLoopRange: %v", err)
	}
	if err := b.SetLoopCount(2); err != nil {
		t.Fatalf("SetLoopCount: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	seen := make(chan WaitResult, 8)
	looper := NewLooper(b, func(res WaitResult) error {
		seen <- res
		if res.Kind == WaitEndOfStream {
			return ErrStopLooper
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- looper.Run(t.Context()) }()

	hw := softOf(t, b)
	next := func(want WaitResult) {
		t.Helper()
		select {
		case got := <-seen:
			if got != want {
				t.Fatalf("Expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Looper did not report %s", want)
		}
	}

	hw.Advance(30)
	next(WaitResult{Kind: WaitUser, Index: 0})

	hw.Advance(25) // loop point at 50, back to 0
	eventually(t, "loop point", func() bool {
		n, _ := b.LoopCounter()
		return n == 1
	})

	hw.Advance(30)
	next(WaitResult{Kind: WaitUser, Index: 0})

	hw.Advance(30) // second pass ends the loop
	eventually(t, "last loop point", func() bool {
		n, _ := b.LoopCounter()
		return n == 2
	})

	hw.Advance(20)
	next(WaitResult{Kind: WaitUser, Index: 1})

	hw.Advance(50)
	next(WaitResult{Kind: WaitEndOfStream})

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Looper did not stop")
	}
}

func TestLooperStopsOnDispose(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	done := make(chan error, 1)
	go func() { done <- NewLooper(b, nil).Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	if err := b.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Looper did not stop after dispose")
	}
}

func TestWaitLoopEndAtBufferSize(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	hw := softOf(t, b)

	if err := b.SetLoop(true); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}
	if err := b.SetLoopRange(10, 100); err != nil {
		t.Fatalf("SetLoopRange: %v", err)
	}
	if err := b.SetLoopCount(2); err != nil {
		t.Fatalf("SetLoopCount: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ch := b.WaitAsync(t.Context(), Infinite)

	hw.Advance(100)
	eventually(t, "restart at loop start", func() bool {
		n, _ := b.LoopCounter()
		playing, _ := b.Playing()
		return n == 1 && playing
	})
	if pos, _ := b.Position(); pos != 10 {
		t.Fatalf("Expected jump back to 10, got %d", pos)
	}
	if b.State() != Playing {
		t.Fatalf("Expected playing, got %s", b.State())
	}

	hw.Advance(50)
	if pos, _ := b.Position(); pos != 60 {
		t.Fatalf("Expected playback to continue from the loop start, got %d", pos)
	}

	// second pass uses up the count and runs off the end
	hw.Advance(40)
	expectOutcome(t, ch, WaitResult{Kind: WaitEndOfStream})
	if b.State() != Stopped {
		t.Errorf("Expected stopped after the last pass, got %s", b.State())
	}
}

func TestWaitEmptyLoopRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
	}{
		{"defaults", 0, 0},
		{"interior", 40, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestOutput(t)
			b := newTestBuffer(t, out, 100)
			hw := softOf(t, b)

			if err := b.SetLoop(true); err != nil {
				t.Fatalf("SetLoop: %v", err)
			}
			if err := b.SetLoopRange(tt.start, tt.end); err != nil {
				t.Fatalf("SetLoopRange: %v", err)
			}
			if err := b.Play(); err != nil {
				t.Fatalf("Play: %v", err)
			}

			ch := b.WaitAsync(t.Context(), Infinite)
			hw.Advance(30)
			time.Sleep(20 * time.Millisecond)
			hw.Advance(30)
			time.Sleep(20 * time.Millisecond)
			if pos, _ := b.Position(); pos != 60 {
				t.Fatalf("Expected playback to move past an empty loop, got %d", pos)
			}

			hw.Advance(40)
			expectOutcome(t, ch, WaitResult{Kind: WaitEndOfStream})
		})
	}
}

func TestPlayDropsStaleEndOfStream(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	softOf(t, b).Advance(20)
	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := b.Play(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	res, err := b.Wait(t.Context(), 30*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Kind != WaitTimedOut {
		t.Errorf("Expected the earlier pause to be forgotten, got %s", res)
	}
	if b.State() != Playing {
		t.Errorf("Expected still playing, got %s", b.State())
	}
}
