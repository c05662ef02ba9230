// ABOUTME: Background looper keeping interior loops running without a caller loop
// ABOUTME: Repeats waits and hands markers and end-of-stream to a handler
package soundbuffer

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ErrStopLooper may be returned by a Handler to end Run without an error
var ErrStopLooper = errors.New("stop looper")

// Handler receives user marker and end-of-stream results
type Handler func(WaitResult) error

// Looper repeatedly waits on a buffer. Loop points are applied by the waits
// themselves; everything else goes to the handler.
type Looper struct {
	buf     *Buffer
	handler Handler
}

// NewLooper creates a looper for b. A nil handler drops every result.
func NewLooper(b *Buffer, handler Handler) *Looper {
	return &Looper{buf: b, handler: handler}
}

// Run blocks until ctx is done, the buffer is disposed or the handler fails
func (l *Looper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	results := make(chan WaitResult)

	g.Go(func() error {
		defer close(results)
		for {
			res, err := l.buf.Wait(ctx, Infinite)
			if errors.Is(err, ErrDisposed) {
				return nil
			}
			if err != nil {
				return err
			}
			switch res.Kind {
			case WaitCancelled:
				return nil
			case WaitTimedOut:
				continue
			}
			select {
			case results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		for res := range results {
			if l.handler == nil {
				continue
			}
			if err := l.handler(res); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, ErrStopLooper) {
		return err
	}
	return nil
}
