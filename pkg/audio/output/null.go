// ABOUTME: Null audio output
// ABOUTME: Drains the mix on a ticker at the real-time rate without a sound card
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
)

// NullPeriod is how often the null backend pulls audio
const NullPeriod = 10 * time.Millisecond

// Null discards audio but consumes it at the rate a sound card would
type Null struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNull creates a null output
func NewNull() Output {
	return &Null{}
}

// Open starts the drain loop
func (n *Null) Open(format audio.Format, src io.Reader) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		return fmt.Errorf("null output already open")
	}
	chunk := format.BytesForDuration(int(NullPeriod / time.Millisecond))
	if chunk <= 0 {
		return fmt.Errorf("format %s too slow for a %v period", format, NullPeriod)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})

	go n.drain(ctx, src, make([]byte, chunk))

	slog.Debug("Audio output initialized", "backend", "null", "format", format.String())
	return nil
}

func (n *Null) drain(ctx context.Context, src io.Reader, buf []byte) {
	defer close(n.done)

	ticker := time.NewTicker(NullPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := src.Read(buf); err != nil {
				return
			}
		}
	}
}

// Close stops the drain loop and waits for it
func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel == nil {
		return nil
	}
	n.cancel()
	<-n.done
	n.cancel = nil
	return nil
}
