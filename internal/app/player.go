// ABOUTME: Main player application orchestration
// ABOUTME: Loads a file into a sound buffer, drives it and serves remote control
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sendspin/soundbuffer-go/internal/config"
	"github.com/Sendspin/soundbuffer-go/internal/discovery"
	"github.com/Sendspin/soundbuffer-go/internal/remote"
	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/audio/decode"
	"github.com/Sendspin/soundbuffer-go/pkg/audio/output"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/Sendspin/soundbuffer-go/pkg/device/soft"
	"github.com/Sendspin/soundbuffer-go/pkg/soundbuffer"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StatusInterval is how often OnStatus is called while running
const StatusInterval = 250 * time.Millisecond

// Config holds player configuration
type Config struct {
	// File is decoded unless PCM is set
	File string
	PCM  *decode.PCM

	Backend string
	Device  audio.Format

	Loop      bool
	LoopStart int
	// LoopEnd of 0 loops to the end of the file
	LoopEnd   int
	LoopCount int
	Repeat    bool
	Volume    int
	Markers   []int

	Remote     bool
	RemoteAddr string
	Name       string
	MDNS       bool

	// ExitOnEnd makes Run return when playback stops by itself
	ExitOnEnd bool

	// Opener replaces the backend device, mainly for tests
	Opener soundbuffer.Opener

	Commands <-chan remote.Command
	OnStatus func(remote.Status)
	OnEvent  func(remote.Event)
	OnError  func(error)
	// OnListen reports the remote control address
	OnListen func(addr string)
}

// FromConfig maps resolved configuration onto a player config for file
func FromConfig(cfg *config.Config, file string) Config {
	return Config{
		File:    file,
		Backend: cfg.Output.Backend,
		Device: audio.Format{
			Channels:   cfg.Device.Channels,
			SampleRate: cfg.Device.SampleRate,
			BitDepth:   cfg.Device.Bits,
		},
		Loop:       cfg.Player.Loop,
		LoopStart:  cfg.Player.LoopStart,
		LoopEnd:    cfg.Player.LoopEnd,
		LoopCount:  cfg.Player.LoopCount,
		Repeat:     cfg.Player.Repeat,
		Volume:     cfg.Player.Volume,
		Markers:    cfg.Player.Markers,
		Remote:     cfg.Remote.Enabled,
		RemoteAddr: cfg.Remote.Addr,
		Name:       cfg.Remote.Name,
		MDNS:       cfg.MDNS.Enabled,
	}
}

// Player plays one decoded file through a shared output device
type Player struct {
	config Config
	title  string
	format audio.Format
	out    *soundbuffer.OutputDevice
	buf    *soundbuffer.Buffer
	server *remote.Server
	disc   *discovery.Manager
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New decodes the file and prepares a buffer; nothing plays until Run
func New(cfg Config) (*Player, error) {
	pcm := cfg.PCM
	title := "(memory)"
	if cfg.File != "" {
		title = filepath.Base(cfg.File)
	}
	if pcm == nil {
		if cfg.File == "" {
			return nil, errors.New("no file to play")
		}
		var err error
		pcm, err = decode.Load(cfg.File)
		if err != nil {
			return nil, err
		}
	}

	opener := cfg.Opener
	if opener == nil {
		backend, format := cfg.Backend, cfg.Device
		opener = func() (device.Device, error) {
			return output.OpenDevice(backend, soft.Config{Format: format})
		}
	}

	p := &Player{
		config: cfg,
		title:  title,
		format: pcm.Format,
		out:    soundbuffer.NewOutputDevice(opener),
		logger: slog.Default().With("player uuid", uuid.New()),
	}

	buf, err := soundbuffer.New(p.out, soundbuffer.Config{
		Data:          pcm.Data,
		Channels:      pcm.Format.Channels,
		SampleRate:    pcm.Format.SampleRate,
		BitsPerSample: pcm.Format.BitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sound buffer: %w", err)
	}
	p.buf = buf

	if err := p.configure(); err != nil {
		buf.Dispose()
		return nil, err
	}

	p.logger.Info("loaded", "file", title, "format", pcm.Format.String(), "frames", pcm.Frames())
	return p, nil
}

// configure applies loop, markers and volume from the config
func (p *Player) configure() error {
	cfg := p.config
	if cfg.Loop {
		end := cfg.LoopEnd
		if end == 0 {
			total, err := p.buf.Total()
			if err != nil {
				return err
			}
			end = total
		}
		if err := p.buf.SetLoopRange(cfg.LoopStart, end); err != nil {
			return fmt.Errorf("invalid loop range: %w", err)
		}
		if err := p.buf.SetLoopCount(cfg.LoopCount); err != nil {
			return fmt.Errorf("invalid loop count: %w", err)
		}
		if err := p.buf.SetLoop(true); err != nil {
			return err
		}
	}
	if len(cfg.Markers) > 0 {
		if err := p.buf.SetNotify(cfg.Markers...); err != nil {
			return fmt.Errorf("invalid markers: %w", err)
		}
	}
	if err := p.buf.SetVolume(cfg.Volume); err != nil {
		return fmt.Errorf("invalid volume: %w", err)
	}
	return nil
}

// Buffer exposes the underlying sound buffer
func (p *Player) Buffer() *soundbuffer.Buffer {
	return p.buf
}

// Play starts playback, repeating when configured to
func (p *Player) Play() error {
	if p.config.Repeat {
		return p.buf.Repeat()
	}
	return p.buf.Play()
}

func (p *Player) Pause() error  { return p.buf.Pause() }
func (p *Player) Stop() error   { return p.buf.Stop() }
func (p *Player) Repeat() error { return p.buf.Repeat() }

// Seek moves the cursor to frame
func (p *Player) Seek(frame int) error {
	return p.buf.SetPosition(frame)
}

// SetLoop switches interior looping
func (p *Player) SetLoop(on bool) error {
	if on {
		end, err := p.buf.LoopEnd()
		if err != nil {
			return err
		}
		// an unset loop end covers the whole file
		if end == 0 {
			total, err := p.buf.Total()
			if err != nil {
				return err
			}
			if err := p.buf.SetLoopEnd(total); err != nil {
				return err
			}
		}
	}
	return p.buf.SetLoop(on)
}

func (p *Player) SetVolume(volume int) error {
	return p.buf.SetVolume(volume)
}

// Status snapshots the buffer
func (p *Player) Status() remote.Status {
	st := remote.Status{
		State:      p.buf.State().String(),
		SampleRate: p.format.SampleRate,
		Title:      p.title,
		Format:     p.format.String(),
	}
	st.Position, _ = p.buf.Position()
	st.Total, _ = p.buf.Total()
	st.Volume, _ = p.buf.Volume()
	st.Loop, _ = p.buf.Loop()
	st.LoopCount, _ = p.buf.LoopCount()
	st.LoopCounter, _ = p.buf.LoopCounter()
	return st
}

var _ remote.Player = (*Player)(nil)

// Run starts playback and blocks until ctx is done or, with ExitOnEnd,
// playback stops by itself
func (p *Player) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p.config.Remote {
		if err := p.startRemote(); err != nil {
			return err
		}
	}

	if err := p.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return soundbuffer.NewLooper(p.buf, p.handleWait).Run(ctx)
	})

	if p.server != nil {
		g.Go(func() error { return p.server.Serve(ctx) })
	}

	if p.config.Commands != nil {
		g.Go(func() error {
			p.handleCommands(ctx)
			return nil
		})
	}

	if p.config.OnStatus != nil {
		g.Go(func() error {
			p.statusLoop(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (p *Player) startRemote() error {
	p.server = remote.NewServer(remote.Config{Addr: p.config.RemoteAddr, Name: p.config.Name}, p)
	if err := p.server.Listen(); err != nil {
		return err
	}
	addr := p.server.Addr().String()
	if p.config.OnListen != nil {
		p.config.OnListen(addr)
	}

	if p.config.MDNS {
		p.disc = discovery.NewManager(discovery.Config{
			ServiceName: p.config.Name,
			Port:        p.server.Port(),
			Path:        remote.Path,
		})
		if err := p.disc.Advertise(); err != nil {
			// remote control still works by address
			p.logger.Warn("mDNS advertisement failed", "error", err)
		}
	}
	return nil
}

// handleWait reports markers and decides whether the stream is over
func (p *Player) handleWait(res soundbuffer.WaitResult) error {
	ev := remote.Event{Kind: res.Kind.String(), Index: res.Index}
	p.logger.Debug("wait result", "result", res.String())

	if p.config.OnEvent != nil {
		p.config.OnEvent(ev)
	}
	if p.server != nil {
		if err := p.server.Broadcast(remote.TypeEvent, ev); err != nil {
			p.logger.Warn("failed to broadcast event", "error", err)
		}
	}

	if res.Kind == soundbuffer.WaitEndOfStream && p.config.ExitOnEnd {
		// a pause also ends the device stream but playback is not over
		if p.buf.State() == soundbuffer.Paused {
			return nil
		}
		p.logger.Info("playback finished")
		return soundbuffer.ErrStopLooper
	}
	return nil
}

func (p *Player) handleCommands(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-p.config.Commands:
			if !ok {
				return
			}
			if err := remote.Apply(p, cmd); err != nil {
				p.logger.Warn("command failed", "action", cmd.Action, "error", err)
				if p.config.OnError != nil {
					p.config.OnError(err)
				}
				continue
			}
			if p.config.OnStatus != nil {
				p.config.OnStatus(p.Status())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Player) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()

	for {
		p.config.OnStatus(p.Status())
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops discovery and disposes the buffer, which closes the device
// with its last reference
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		if p.disc != nil {
			p.disc.Stop()
		}
		p.closeErr = p.buf.Dispose()
	})
	return p.closeErr
}
