// ABOUTME: Wait engine blocking on markers, loop point, end of stream and cancel
// ABOUTME: Runs on a worker goroutine and applies interior looping as it goes
package soundbuffer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

// Infinite waits with no timeout
const Infinite = device.Infinite

// WaitKind says why a wait returned
type WaitKind int

const (
	// WaitCancelled means the context ended or the buffer was disposed
	WaitCancelled WaitKind = iota
	// WaitTimedOut means the timeout elapsed with nothing fired
	WaitTimedOut
	// WaitEndOfStream means playback stopped or ran off the end
	WaitEndOfStream
	// WaitUser means the user marker at Index was crossed
	WaitUser
)

func (k WaitKind) String() string {
	switch k {
	case WaitCancelled:
		return "cancelled"
	case WaitTimedOut:
		return "timed-out"
	case WaitEndOfStream:
		return "end-of-stream"
	case WaitUser:
		return "user"
	default:
		return "unknown"
	}
}

// WaitResult is the outcome of a successful wait
type WaitResult struct {
	Kind  WaitKind
	Index int
}

func (r WaitResult) String() string {
	if r.Kind == WaitUser {
		return fmt.Sprintf("user marker %d", r.Index)
	}
	return r.Kind.String()
}

// WaitOutcome is delivered once by WaitAsync
type WaitOutcome struct {
	Result WaitResult
	Err    error
}

// Wait blocks until a user marker is crossed, playback ends, timeout passes
// or ctx is done. Loop points passed meanwhile reposition the cursor and do
// not end the wait. Only one wait may be outstanding per buffer.
func (b *Buffer) Wait(ctx context.Context, timeout time.Duration) (WaitResult, error) {
	outcome := <-b.WaitAsync(ctx, timeout)
	return outcome.Result, outcome.Err
}

// WaitAsync starts a wait on a worker goroutine. The channel receives
// exactly one outcome and is then closed.
func (b *Buffer) WaitAsync(ctx context.Context, timeout time.Duration) <-chan WaitOutcome {
	out := make(chan WaitOutcome, 1)

	b.mu.Lock()
	if err := b.liveLocked(); err != nil {
		b.mu.Unlock()
		out <- WaitOutcome{Err: err}
		close(out)
		return out
	}
	if b.waiting {
		b.mu.Unlock()
		out <- WaitOutcome{Err: ErrWaitInProgress}
		close(out)
		return out
	}
	b.waiting = true
	b.waits.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.waits.Done()

		result, err := b.waitLoop(ctx, timeout)

		b.mu.Lock()
		b.waiting = false
		b.mu.Unlock()

		out <- WaitOutcome{Result: result, Err: err}
		close(out)
	}()
	return out
}

func (b *Buffer) waitLoop(ctx context.Context, timeout time.Duration) (WaitResult, error) {
	stop := context.AfterFunc(ctx, b.cancel.Set)
	defer stop()

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		b.mu.Lock()
		if b.hw == nil {
			b.mu.Unlock()
			return WaitResult{Kind: WaitCancelled}, nil
		}
		set := b.notify
		events := set.waitSet(b.cancel)
		b.mu.Unlock()

		remaining := Infinite
		if !deadline.IsZero() {
			remaining = max(time.Until(deadline), 0)
		}

		i, err := device.WaitAny(events, remaining)
		switch {
		case errors.Is(err, device.ErrWaitTimeout):
			return WaitResult{Kind: WaitTimedOut}, nil
		case errors.Is(err, device.ErrEventClosed):
			// the set was replaced; pick up the new triggers
			continue
		case err != nil:
			return WaitResult{}, fmt.Errorf("%w: wait: %v", ErrBug, err)
		}

		users := len(set.markers)
		switch i {
		case users:
			b.passLoopPoint(set)

		case users + 1:
			set.endOfStream.Reset()
			b.finishStream(set)
			return WaitResult{Kind: WaitEndOfStream}, nil

		case users + 2:
			b.cancel.Reset()
			if ctx.Err() != nil || b.Disposed() {
				return WaitResult{Kind: WaitCancelled}, nil
			}

		default:
			set.markers[i].Reset()
			return WaitResult{Kind: WaitUser, Index: i}, nil
		}
	}
}

// passLoopPoint counts the pass and jumps back to the loop start while the
// loop count allows it. An empty range never jumps.
func (b *Buffer) passLoopPoint(set *notificationSet) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hw == nil || b.notify != set || !b.loop || b.loopEnd <= b.loopStart {
		return
	}
	if b.loopCount != 0 && b.loopCounter < b.loopCount {
		b.loopCounter++
	}
	if b.loopCount == 0 || b.loopCounter < b.loopCount {
		if err := b.setRawPositionLocked(b.loopStart); err != nil {
			b.logger.Warn("Jumping to loop start", "loop start", b.loopStart, "error", err)
			return
		}
		if err := b.resumeLocked(set); err != nil {
			b.logger.Warn("Resuming at loop start", "error", err)
			return
		}
		b.logger.Debug("Loop point passed", "counter", b.loopCounter, "count", b.loopCount)
	}
}

// resumeLocked restarts a device that ran off the end in the same pass that
// crossed a loop end at the buffer size. The stop it reported is dropped.
func (b *Buffer) resumeLocked(set *notificationSet) error {
	if !b.state.active() {
		return nil
	}
	status, err := b.hw.Status()
	if err != nil {
		return deviceError("status", err)
	}
	if status.Playing() {
		return nil
	}
	var flags device.PlayFlags
	if b.state == PlayingLooping {
		flags = device.PlayLooping
	}
	if err := b.hw.Play(flags); err != nil {
		return deviceError("play", err)
	}
	set.endOfStream.Reset()
	return nil
}

// finishStream settles the state after the device stopped. A buffer that ran
// off the end is rewound to 0 and moves to Stopped.
func (b *Buffer) finishStream(set *notificationSet) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hw == nil || b.notify != set || b.state == PlayingLooping {
		return
	}
	play, _, err := b.hw.Position()
	if err != nil {
		b.logger.Warn("Reading position at end of stream", "error", err)
		return
	}
	if play != 0 {
		return
	}
	if err := b.stopLocked(); err != nil {
		b.logger.Warn("Stopping at end of stream", "error", err)
	}
}
