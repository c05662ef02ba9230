// ABOUTME: Software secondary buffer
// ABOUTME: Two-region locking, cursors, notifications and per-buffer controls
package soft

import (
	"log/slog"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/google/uuid"
)

// memory is sample storage shared between a buffer and its duplicates
type memory struct {
	data []byte
}

// Buffer is an in-memory device.Buffer. All state is guarded by the
// owning device's mutex.
type Buffer struct {
	dev        *Device
	id         uuid.UUID
	mem        *memory
	format     audio.Format
	effectsCap bool
	effects    []device.EffectKind

	play    int
	frac    float64
	playing bool
	looping bool

	notify    []device.PositionNotify
	volume    int
	pan       int
	frequency int

	locked    bool
	refreshes int
	released  bool

	logger *slog.Logger
}

// ID identifies this buffer instance
func (b *Buffer) ID() uuid.UUID {
	return b.id
}

func (b *Buffer) check(op string) error {
	if b.released || b.dev.closed {
		return device.NewError(op, device.CodeReleased)
	}
	return nil
}

func (b *Buffer) size() int {
	return len(b.mem.data)
}

func (b *Buffer) writeCursorLocked() int {
	if !b.playing {
		return b.play
	}
	ahead := b.format.BytesForDuration(b.dev.writeAheadMs)
	if ahead >= b.size() {
		ahead = 0
	}
	return (b.play + ahead) % b.size()
}

func (b *Buffer) Lock(offset, n int, flags device.LockFlags) ([]byte, []byte, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("lock"); err != nil {
		return nil, nil, err
	}
	if b.locked {
		return nil, nil, device.NewError("lock", device.CodeInvalidCall)
	}

	size := b.size()
	if flags&device.LockEntireBuffer != 0 {
		n = size
	}
	if flags&device.LockFromWriteCursor != 0 {
		offset = b.writeCursorLocked()
	}
	if offset < 0 || offset > size || n < 0 || n > size {
		return nil, nil, device.NewError("lock", device.CodeInvalidParam)
	}
	if offset == size {
		offset = 0
	}

	var regionA, regionB []byte
	end := offset + n
	if end <= size {
		regionA = b.mem.data[offset:end:end]
	} else {
		regionA = b.mem.data[offset:size:size]
		regionB = b.mem.data[: end-size : end-size]
	}
	b.locked = true
	return regionA, regionB, nil
}

func (b *Buffer) Unlock(_, _ []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("unlock"); err != nil {
		return err
	}
	if !b.locked {
		return device.NewError("unlock", device.CodeInvalidCall)
	}
	b.locked = false
	b.refreshes++
	return nil
}

// Refreshes counts completed lock/unlock pairs
func (b *Buffer) Refreshes() int {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.refreshes
}

// Locked reports whether a Lock is outstanding
func (b *Buffer) Locked() bool {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.locked
}

func (b *Buffer) Play(flags device.PlayFlags) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("play"); err != nil {
		return err
	}
	b.playing = true
	b.looping = flags&device.PlayLooping != 0
	return nil
}

func (b *Buffer) Stop() error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("stop"); err != nil {
		return err
	}
	if b.playing {
		b.playing = false
		b.fireStopLocked()
	}
	return nil
}

func (b *Buffer) Status() (device.Status, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("status"); err != nil {
		return 0, err
	}
	var status device.Status
	if b.playing {
		status |= device.StatusPlaying
		if b.looping {
			status |= device.StatusLooping
		}
	}
	return status, nil
}

func (b *Buffer) Position() (int, int, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("get position"); err != nil {
		return 0, 0, err
	}
	return b.play, b.writeCursorLocked(), nil
}

// SetPosition moves the play cursor, rounded down to a whole frame
func (b *Buffer) SetPosition(play int) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("set position"); err != nil {
		return err
	}
	if play < 0 || play >= b.size() {
		return device.NewError("set position", device.CodeInvalidParam)
	}
	b.play = play - play%b.format.BlockAlign()
	b.frac = 0
	return nil
}

func (b *Buffer) SetNotificationPositions(notify []device.PositionNotify) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("set notification positions"); err != nil {
		return err
	}
	if len(notify) > device.MaxNotifications {
		return device.NewError("set notification positions", device.CodeInvalidParam)
	}
	for _, n := range notify {
		if n.Event == nil {
			return device.NewError("set notification positions", device.CodeInvalidParam)
		}
		if n.Offset != device.OffsetStop && (n.Offset < 0 || n.Offset > b.size()) {
			return device.NewError("set notification positions", device.CodeInvalidParam)
		}
	}
	b.notify = append([]device.PositionNotify(nil), notify...)
	return nil
}

func (b *Buffer) Volume() (int, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("get volume"); err != nil {
		return 0, err
	}
	return b.volume, nil
}

func (b *Buffer) SetVolume(volume int) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("set volume"); err != nil {
		return err
	}
	if volume < device.VolumeMin || volume > device.VolumeMax {
		return device.NewError("set volume", device.CodeInvalidParam)
	}
	b.volume = volume
	return nil
}

func (b *Buffer) Pan() (int, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("get pan"); err != nil {
		return 0, err
	}
	return b.pan, nil
}

func (b *Buffer) SetPan(pan int) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("set pan"); err != nil {
		return err
	}
	if pan < device.PanLeft || pan > device.PanRight {
		return device.NewError("set pan", device.CodeInvalidParam)
	}
	b.pan = pan
	return nil
}

// Frequency returns the playback rate; the format rate when none was set
func (b *Buffer) Frequency() (int, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("get frequency"); err != nil {
		return 0, err
	}
	return b.frequencyLocked(), nil
}

func (b *Buffer) frequencyLocked() int {
	if b.frequency == 0 {
		return b.format.SampleRate
	}
	return b.frequency
}

// SetFrequency sets the playback rate; 0 restores the format rate
func (b *Buffer) SetFrequency(hz int) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("set frequency"); err != nil {
		return err
	}
	if hz != 0 && (hz < device.MinFrequency || hz > device.MaxFrequency) {
		return device.NewError("set frequency", device.CodeInvalidParam)
	}
	b.frequency = hz
	return nil
}

func (b *Buffer) Effects() ([]device.EffectKind, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("get effects"); err != nil {
		return nil, err
	}
	if !b.effectsCap {
		return nil, device.NewError("get effects", device.CodeControlUnavailable)
	}
	return append([]device.EffectKind(nil), b.effects...), nil
}

// SetEffects replaces the effect chain. The chain is recorded, not applied:
// the software device does no processing.
func (b *Buffer) SetEffects(kinds []device.EffectKind) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if err := b.check("set effects"); err != nil {
		return err
	}
	if !b.effectsCap {
		return device.NewError("set effects", device.CodeControlUnavailable)
	}
	if b.playing {
		return device.NewError("set effects", device.CodeInvalidCall)
	}
	for _, k := range kinds {
		if !k.Valid() {
			return device.NewError("set effects", device.CodeInvalidParam)
		}
	}
	b.effects = append([]device.EffectKind(nil), kinds...)
	return nil
}

func (b *Buffer) Release() error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.released {
		return nil
	}
	b.playing = false
	b.released = true
	b.notify = nil
	b.dev.removeLocked(b)
	b.logger.Debug("Buffer released")
	return nil
}

// Advance moves the play cursor n bytes as if the device had played them,
// firing every notification crossed along the way
func (b *Buffer) Advance(n int) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.released {
		return
	}
	b.advanceLocked(n)
}

func (b *Buffer) advanceLocked(n int) {
	size := b.size()
	for n > 0 && b.playing {
		end := b.play + n
		if end > size {
			end = size
		}
		b.fireRangeLocked(b.play, end)
		n -= end - b.play
		b.play = end

		if b.play == size {
			b.play = 0
			if !b.looping {
				b.playing = false
				b.fireStopLocked()
			}
		}
	}
}

// fireRangeLocked signals offsets in [from, to), plus offsets equal to the
// buffer size when the range reaches the end
func (b *Buffer) fireRangeLocked(from, to int) {
	size := b.size()
	for _, n := range b.notify {
		if n.Offset == device.OffsetStop {
			continue
		}
		if (n.Offset >= from && n.Offset < to) || (n.Offset == size && to == size) {
			n.Event.Set()
		}
	}
}

func (b *Buffer) fireStopLocked() {
	for _, n := range b.notify {
		if n.Offset == device.OffsetStop {
			n.Event.Set()
		}
	}
}
