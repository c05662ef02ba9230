// ABOUTME: Wrap-safe writes into the circular device buffer
// ABOUTME: Scoped lock guard, two-region copy, forced refresh and content dump
package soundbuffer

import (
	"errors"
	"fmt"

	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

// WrapPolicy controls whether a write may continue at byte 0
type WrapPolicy int

const (
	// NoWrap rejects writes that would cross the end of the buffer
	NoWrap WrapPolicy = iota
	// Wrap continues a write that crosses the end at byte 0
	Wrap
)

type writeOptions struct {
	policy     WrapPolicy
	fromCursor bool
}

// WriteOption modifies Write
type WriteOption func(*writeOptions)

// WithWrap lets the write continue at byte 0
func WithWrap() WriteOption {
	return func(o *writeOptions) { o.policy = Wrap }
}

// FromWriteCursor locks at the device's write cursor instead of offset
func FromWriteCursor() WriteOption {
	return func(o *writeOptions) { o.fromCursor = true }
}

// lockedRegion pairs a device Lock with its Unlock
type lockedRegion struct {
	hw       device.Buffer
	a, b     []byte
	wa, wb   int
	released bool
}

func lockRegion(hw device.Buffer, offset, n int, flags device.LockFlags) (*lockedRegion, error) {
	a, b, err := hw.Lock(offset, n, flags)
	if err != nil {
		return nil, deviceError("lock", err)
	}
	return &lockedRegion{hw: hw, a: a, b: b}, nil
}

// copyFrom fills region A, then region B when wrapping, returning bytes written
func (l *lockedRegion) copyFrom(data []byte, policy WrapPolicy) int {
	l.wa = copy(l.a, data)
	if policy == Wrap && len(l.b) > 0 && l.wa < len(data) {
		l.wb = copy(l.b, data[l.wa:])
	}
	return l.wa + l.wb
}

// unlock commits the written prefixes; calling it again does nothing
func (l *lockedRegion) unlock() error {
	if l.released {
		return nil
	}
	l.released = true
	return deviceError("unlock", l.hw.Unlock(l.a[:l.wa], l.b[:l.wb]))
}

// Write copies data into the buffer at offset and returns the bytes written.
// Without WithWrap a write crossing the end is rejected before the device is
// touched. The device may grant smaller regions than requested; the count
// returned is what was actually copied.
func (b *Buffer) Write(data []byte, offset int, opts ...WriteOption) (int, error) {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return 0, err
	}
	return b.writeLocked(data, offset, o.policy, o.fromCursor)
}

func (b *Buffer) writeLocked(data []byte, offset int, policy WrapPolicy, fromCursor bool) (n int, err error) {
	if offset < 0 || offset > b.size {
		return 0, rangeError("offset %d outside buffer of %d bytes", offset, b.size)
	}
	if len(data) > b.size {
		return 0, rangeError("%d bytes exceed buffer of %d bytes", len(data), b.size)
	}
	if policy == NoWrap && offset+len(data) > b.size {
		return 0, rangeError("%d bytes at offset %d cross the end of the buffer", len(data), offset)
	}
	if len(data) == 0 {
		return 0, nil
	}

	var flags device.LockFlags
	if fromCursor {
		flags |= device.LockFromWriteCursor
	}
	region, err := lockRegion(b.hw, offset, len(data), flags)
	if err != nil {
		return 0, err
	}
	defer func() {
		if uerr := region.unlock(); uerr != nil {
			err = errors.Join(err, uerr)
		}
	}()

	return region.copyFrom(data, policy), nil
}

// ForceRefresh locks and unlocks zero bytes at the write cursor so the
// device re-reads buffer-scoped parameters such as effect settings
func (b *Buffer) ForceRefresh() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	region, err := lockRegion(b.hw, 0, 0, device.LockFromWriteCursor)
	if err != nil {
		return err
	}
	return region.unlock()
}

// Bytes returns a copy of the whole buffer. It fails while playing.
func (b *Buffer) Bytes() (data []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return nil, err
	}
	playing, err := b.playingLocked()
	if err != nil {
		return nil, err
	}
	if playing {
		return nil, ErrNowPlaying
	}

	region, err := lockRegion(b.hw, 0, b.size, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := region.unlock(); uerr != nil {
			data, err = nil, errors.Join(err, uerr)
		}
	}()

	if len(region.a) != b.size {
		return nil, fmt.Errorf("%w: locked %d of %d bytes", ErrBug, len(region.a), b.size)
	}
	return append([]byte(nil), region.a...), nil
}
