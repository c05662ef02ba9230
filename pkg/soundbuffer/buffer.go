// ABOUTME: Sound buffer lifecycle and playback state machine
// ABOUTME: Allocate/Init, duplicate, dispose, play/repeat/stop/pause and stopAndRun
package soundbuffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/google/uuid"
)

// Buffer is one circular PCM buffer playing through a shared OutputDevice.
// A Buffer is created empty by Allocate and becomes usable after Init or
// InitCopy. Once disposed every operation fails with ErrDisposed.
type Buffer struct {
	mu     sync.Mutex
	out    *OutputDevice
	ref    *DeviceRef
	hw     device.Buffer
	id     uuid.UUID
	origin bool
	logger *slog.Logger

	initialized bool
	size        int
	format      audio.Format
	effects     bool

	state         State
	pausedLooping bool

	loop        bool
	loopStart   int
	loopEnd     int
	loopCount   int
	loopCounter int

	notify *notificationSet
	cancel *device.Event

	waiting bool
	waits   sync.WaitGroup
}

// Allocate returns an uninitialized buffer bound to out
func Allocate(out *OutputDevice) *Buffer {
	id := uuid.New()
	return &Buffer{
		out:    out,
		id:     id,
		origin: true,
		cancel: device.NewEvent(true),
		logger: slog.Default().With("sound buffer uuid", id),
	}
}

// New allocates and initializes a buffer
func New(out *OutputDevice, cfg Config) (*Buffer, error) {
	b := Allocate(out)
	if err := b.Init(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

// Init validates cfg, takes a device reference and creates the device buffer
func (b *Buffer) Init(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return ErrAlreadyInitialized
	}
	format, size, err := cfg.resolve()
	if err != nil {
		return err
	}

	ref, err := b.out.Acquire()
	if err != nil {
		return err
	}
	hw, err := ref.Device().CreateBuffer(device.BufferDesc{
		Format:  format,
		Bytes:   size,
		Effects: cfg.Effects,
	})
	if err != nil {
		b.releaseRef(ref)
		return deviceError("create buffer", err)
	}

	b.attachLocked(ref, hw, format, size)
	b.effects = cfg.Effects

	if err := b.rebuildLocked(nil, 0); err != nil {
		b.detachLocked()
		return err
	}
	if cfg.Data != nil {
		if _, err := b.writeLocked(cfg.Data, 0, NoWrap, false); err != nil {
			b.notify.close()
			b.detachLocked()
			return err
		}
	}

	b.logger.Debug("Buffer initialized", "bytes", size, "format", format.String(), "effects", cfg.Effects)
	return nil
}

// Duplicate creates an independent copy of b sharing its samples. The copy
// inherits the loop settings and markers with a fresh loop counter.
func (b *Buffer) Duplicate() (*Buffer, error) {
	dup := Allocate(b.out)
	if err := dup.InitCopy(b); err != nil {
		return nil, err
	}
	return dup, nil
}

// InitCopy initializes an allocated buffer as a duplicate of src
func (b *Buffer) InitCopy(src *Buffer) error {
	if b == src {
		return fmt.Errorf("%w: cannot copy a buffer into itself", ErrInvalidOperation)
	}

	src.mu.Lock()
	if err := src.liveLocked(); err != nil {
		src.mu.Unlock()
		return err
	}
	srcHW := src.hw
	format, size, effects := src.format, src.size, src.effects
	loop, loopStart, loopEnd, loopCount := src.loop, src.loopStart, src.loopEnd, src.loopCount
	markers := append([]int(nil), src.notify.offsets...)
	src.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return fmt.Errorf("%w: copy target must be freshly allocated", ErrInvalidOperation)
	}

	ref, err := b.out.Acquire()
	if err != nil {
		return err
	}
	hw, err := ref.Device().DuplicateBuffer(srcHW)
	if err != nil {
		b.releaseRef(ref)
		return deviceError("duplicate buffer", err)
	}

	b.attachLocked(ref, hw, format, size)
	b.origin = false
	b.effects = effects
	b.loop = loop
	b.loopStart = loopStart
	b.loopCount = loopCount
	b.loopCounter = 0

	if err := b.rebuildLocked(markers, loopEnd); err != nil {
		b.detachLocked()
		return err
	}

	b.logger.Debug("Buffer duplicated", "source", src.id)
	return nil
}

func (b *Buffer) attachLocked(ref *DeviceRef, hw device.Buffer, format audio.Format, size int) {
	b.ref = ref
	b.hw = hw
	b.format = format
	b.size = size
	b.state = Stopped
	b.initialized = true
}

// detachLocked undoes attachLocked after a failed initialization
func (b *Buffer) detachLocked() {
	if err := b.hw.Release(); err != nil {
		b.logger.Warn("Releasing buffer after failed init", "error", err)
	}
	b.releaseRef(b.ref)
	b.hw = nil
	b.ref = nil
	b.notify = nil
	b.initialized = false
}

func (b *Buffer) releaseRef(ref *DeviceRef) {
	if err := ref.Release(); err != nil {
		b.logger.Warn("Releasing device reference", "error", err)
	}
}

func (b *Buffer) liveLocked() error {
	if b.hw == nil {
		return ErrDisposed
	}
	return nil
}

// Dispose stops playback, wakes any outstanding wait, frees the triggers
// and releases the device reference. Disposing twice is a no-op.
func (b *Buffer) Dispose() error {
	b.mu.Lock()
	if b.hw == nil {
		b.mu.Unlock()
		return nil
	}
	hw, ref, set := b.hw, b.ref, b.notify
	b.hw, b.ref, b.notify = nil, nil, nil
	b.state = Disposed
	b.mu.Unlock()

	b.cancel.Set()
	b.waits.Wait()
	b.cancel.Close()

	var errs []error
	if err := hw.Stop(); err != nil {
		errs = append(errs, deviceError("stop", err))
	}
	set.close()
	if err := hw.Release(); err != nil {
		errs = append(errs, deviceError("release buffer", err))
	}
	if err := ref.Release(); err != nil {
		errs = append(errs, err)
	}

	b.logger.Debug("Buffer disposed")
	return errors.Join(errs...)
}

// Disposed reports whether the buffer has no device resource
func (b *Buffer) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hw == nil
}

// IsOrigin is false for buffers created by Duplicate or InitCopy
func (b *Buffer) IsOrigin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.origin
}

// Play starts playback once through to the end of the buffer
func (b *Buffer) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	b.clearStaleStopLocked()
	if err := b.hw.Play(0); err != nil {
		return deviceError("play", err)
	}
	b.state = Playing
	b.pausedLooping = false
	return nil
}

// Repeat starts playback restarting at byte 0 whenever the end is reached
func (b *Buffer) Repeat() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	b.clearStaleStopLocked()
	if err := b.hw.Play(device.PlayLooping); err != nil {
		return deviceError("repeat", err)
	}
	b.state = PlayingLooping
	b.pausedLooping = false
	return nil
}

// Stop halts playback, rewinds to 0 and clears the loop counter
func (b *Buffer) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	return b.stopLocked()
}

// clearStaleStopLocked drops an end-of-stream trigger left set by a stop or
// pause that no wait consumed, so the next wait does not end at once
func (b *Buffer) clearStaleStopLocked() {
	if !b.waiting && b.notify != nil {
		b.notify.endOfStream.Reset()
	}
}

func (b *Buffer) stopLocked() error {
	if err := b.hw.Stop(); err != nil {
		return deviceError("stop", err)
	}
	if err := b.hw.SetPosition(0); err != nil {
		return deviceError("rewind", err)
	}
	b.state = Stopped
	b.pausedLooping = false
	b.loopCounter = 0
	return nil
}

// Pause halts playback keeping the cursor and the repeat mode. Pausing a
// buffer that is not playing does nothing.
func (b *Buffer) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	if !b.state.active() {
		return nil
	}
	if err := b.hw.Stop(); err != nil {
		return deviceError("pause", err)
	}
	b.pausedLooping = b.state == PlayingLooping
	b.state = Paused
	return nil
}

// StopAndRun stops the device, runs fn and resumes playback in the prior
// mode if the buffer was actively playing. Changes the device refuses while
// playing (effect chains, some writes) belong in fn.
func (b *Buffer) StopAndRun(fn func(*Buffer) error) error {
	b.mu.Lock()
	if err := b.liveLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	active, err := b.playingLocked()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	looping := b.state == PlayingLooping
	if active {
		if err := b.hw.Stop(); err != nil {
			b.mu.Unlock()
			return deviceError("stop", err)
		}
	}
	b.mu.Unlock()

	runErr := fn(b)
	if !active {
		return runErr
	}

	var resumeErr error
	if looping {
		resumeErr = b.Repeat()
	} else {
		resumeErr = b.Play()
	}
	return errors.Join(runErr, resumeErr)
}

// State returns the state machine value
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hw == nil {
		return Disposed
	}
	return b.state
}

// Playing reports whether the buffer was started and the device is still
// consuming it
func (b *Buffer) Playing() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return false, err
	}
	return b.playingLocked()
}

func (b *Buffer) playingLocked() (bool, error) {
	if !b.state.active() {
		return false, nil
	}
	status, err := b.hw.Status()
	if err != nil {
		return false, deviceError("status", err)
	}
	return status.Playing(), nil
}

// Pausing reports whether the buffer is not started but holds a non-zero cursor
func (b *Buffer) Pausing() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return false, err
	}
	if b.state.active() {
		return false, nil
	}
	play, _, err := b.hw.Position()
	if err != nil {
		return false, deviceError("get position", err)
	}
	return play > 0, nil
}

// Repeating reports whether the buffer plays, or was paused, in repeat mode
func (b *Buffer) Repeating() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return false, err
	}
	return b.state == PlayingLooping || (b.state == Paused && b.pausedLooping), nil
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hw == nil {
		return fmt.Sprintf("soundbuffer %s (disposed)", b.id)
	}
	return fmt.Sprintf("soundbuffer %s %s %d bytes %s", b.id, b.format, b.size, b.state)
}
