// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams the device mix through a persistent oto player
package output

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, so every Oto shares it
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// Oto output implementation using oto library
type Oto struct {
	mu     sync.Mutex
	player *oto.Player
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

func sharedOtoContext(format audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat.SampleRate != format.SampleRate || otoFormat.Channels != format.Channels {
			return nil, fmt.Errorf("oto already running at %s, cannot switch to %s", otoFormat, format)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoFormat = format
	return ctx, nil
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format, src io.Reader) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already open")
	}
	if format.BitDepth != 16 {
		slog.Warn("oto only supports 16-bit output", "requested", format.BitDepth)
	}

	ctx, err := sharedOtoContext(format)
	if err != nil {
		return err
	}

	o.player = ctx.NewPlayer(src)
	o.player.Play()

	slog.Info("Audio output initialized", "backend", "oto", "format", format.String())
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if serr := otoCtx.Suspend(); serr != nil {
			slog.Warn("Suspending oto context", "error", serr)
		}
	}
	return err
}
