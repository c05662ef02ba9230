// ABOUTME: Software device and primary buffer
// ABOUTME: Owns every secondary buffer and the device-wide format and volume
package soft

import (
	"log/slog"
	"sync"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/google/uuid"
)

// Config configures a software device
type Config struct {
	// Format is the initial primary format (default 2ch/48000Hz/16-bit)
	Format audio.Format

	// WriteAheadMs is how far the write cursor leads the play cursor
	// while playing (default 10)
	WriteAheadMs int
}

// Device is an in-memory device.Device
type Device struct {
	mu           sync.Mutex
	id           uuid.UUID
	format       audio.Format
	volume       int
	writeAheadMs int
	buffers      []*Buffer
	primary      *Primary
	closed       bool
	mix          []int32

	logger *slog.Logger
}

// New creates a software device
func New(cfg Config) *Device {
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.Format{Channels: 2, SampleRate: audio.DefaultSampleRate, BitDepth: 16}
	}
	cfg.Format = cfg.Format.WithDefaults()
	if cfg.WriteAheadMs <= 0 {
		cfg.WriteAheadMs = 10
	}

	id := uuid.New()
	return &Device{
		id:           id,
		format:       cfg.Format,
		volume:       device.VolumeMax,
		writeAheadMs: cfg.WriteAheadMs,
		logger:       slog.Default().With("soft device uuid", id),
	}
}

// ID identifies this device instance
func (d *Device) ID() uuid.UUID {
	return d.id
}

// Closed reports whether Close was called
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Buffers returns the number of live secondary buffers
func (d *Device) Buffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// CreateBuffer allocates a zeroed secondary buffer
func (d *Device) CreateBuffer(desc device.BufferDesc) (device.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, device.NewError("create buffer", device.CodeReleased)
	}
	if desc.Bytes < device.MinBufferBytes || desc.Bytes > device.MaxBufferBytes {
		return nil, device.NewError("create buffer", device.CodeInvalidParam)
	}
	if err := desc.Format.Validate(); err != nil {
		return nil, device.NewError("create buffer", device.CodeBadFormat)
	}
	if desc.Effects {
		if desc.Format.BitDepth != 16 {
			return nil, device.NewError("create buffer", device.CodeBadFormat)
		}
		if desc.Bytes < desc.Format.SampleRate*device.FxMinMillis/1000 {
			return nil, device.NewError("create buffer", device.CodeBufferTooSmall)
		}
	}

	b := d.newBufferLocked(&memory{data: make([]byte, desc.Bytes)}, desc.Format, desc.Effects)
	b.logger.Debug("Buffer created", "bytes", desc.Bytes, "format", desc.Format.String(), "effects", desc.Effects)
	return b, nil
}

// DuplicateBuffer creates a buffer sharing src's samples
func (d *Device) DuplicateBuffer(src device.Buffer) (device.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, device.NewError("duplicate buffer", device.CodeReleased)
	}
	sb, ok := src.(*Buffer)
	if !ok || sb.dev != d {
		return nil, device.NewError("duplicate buffer", device.CodeInvalidParam)
	}
	if sb.released {
		return nil, device.NewError("duplicate buffer", device.CodeReleased)
	}
	if sb.effectsCap {
		return nil, device.NewError("duplicate buffer", device.CodeInvalidCall)
	}

	b := d.newBufferLocked(sb.mem, sb.format, false)
	b.volume = sb.volume
	b.pan = sb.pan
	b.frequency = sb.frequency
	b.logger.Debug("Buffer duplicated", "source", sb.id)
	return b, nil
}

func (d *Device) newBufferLocked(mem *memory, format audio.Format, effects bool) *Buffer {
	id := uuid.New()
	b := &Buffer{
		dev:        d,
		id:         id,
		mem:        mem,
		format:     format,
		effectsCap: effects,
		volume:     device.VolumeMax,
		pan:        device.PanCenter,
		logger:     d.logger.With("soft buffer uuid", id),
	}
	d.buffers = append(d.buffers, b)
	return b
}

func (d *Device) removeLocked(b *Buffer) {
	for i, other := range d.buffers {
		if other == b {
			d.buffers = append(d.buffers[:i], d.buffers[i+1:]...)
			return
		}
	}
}

// Primary returns the primary buffer, creating it on first use
func (d *Device) Primary() (device.Primary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, device.NewError("primary", device.CodeReleased)
	}
	if d.primary == nil {
		d.primary = &Primary{dev: d}
	}
	return d.primary, nil
}

// OutputFormat is the format Read renders: the primary rate and channel
// count at 16 bits
func (d *Device) OutputFormat() audio.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return audio.Format{Channels: d.format.Channels, SampleRate: d.format.SampleRate, BitDepth: 16}
}

// Close stops every buffer and releases the device
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	for _, b := range d.buffers {
		b.playing = false
		b.released = true
	}
	d.buffers = nil
	d.primary = nil
	d.closed = true
	d.logger.Debug("Device closed")
	return nil
}

// Primary is the device-wide buffer holding the output format and master volume
type Primary struct {
	dev      *Device
	released bool
}

func (p *Primary) check(op string) error {
	if p.released || p.dev.closed {
		return device.NewError(op, device.CodeReleased)
	}
	return nil
}

func (p *Primary) Format() (audio.Format, error) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	if err := p.check("get format"); err != nil {
		return audio.Format{}, err
	}
	return p.dev.format, nil
}

// SetFormat changes the mixing format. Backends already opened keep the
// rate they were opened with.
func (p *Primary) SetFormat(format audio.Format) error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	if err := p.check("set format"); err != nil {
		return err
	}
	if err := format.Validate(); err != nil {
		return device.NewError("set format", device.CodeBadFormat)
	}
	p.dev.format = format
	p.dev.logger.Info("Primary format changed", "format", format.String())
	return nil
}

func (p *Primary) Volume() (int, error) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	if err := p.check("get volume"); err != nil {
		return 0, err
	}
	return p.dev.volume, nil
}

func (p *Primary) SetVolume(volume int) error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	if err := p.check("set volume"); err != nil {
		return err
	}
	if volume < device.VolumeMin || volume > device.VolumeMax {
		return device.NewError("set volume", device.CodeInvalidParam)
	}
	p.dev.volume = volume
	return nil
}

func (p *Primary) Release() error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	p.released = true
	if p.dev.primary == p {
		p.dev.primary = nil
	}
	return nil
}
