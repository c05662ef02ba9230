// ABOUTME: Device and buffer interfaces for the output hardware
// ABOUTME: Defines lock/play flags, limits and position notifications
package device

import (
	"github.com/Sendspin/soundbuffer-go/pkg/audio"
)

const (
	// Buffer size bounds in bytes
	MinBufferBytes = 4
	MaxBufferBytes = 0x0FFFFFFF

	// Playback frequency bounds; 0 restores the format rate
	MinFrequency = audio.MinSampleRate
	MaxFrequency = audio.MaxSampleRate

	// Effects need at least this much audio in the buffer
	FxMinMillis = 150

	// OffsetStop registers a notification fired when playback stops
	OffsetStop = -1

	MaxNotifications = 100000

	// MaxWaitObjects bounds the events passed to a single WaitAny
	MaxWaitObjects = 64

	// Volume in hundredths of a decibel
	VolumeMin = -10000
	VolumeMax = 0

	PanLeft   = -10000
	PanCenter = 0
	PanRight  = 10000
)

// LockFlags modify how Lock chooses the locked range
type LockFlags uint32

const (
	// LockFromWriteCursor ignores the offset and locks at the write cursor
	LockFromWriteCursor LockFlags = 1 << iota
	// LockEntireBuffer ignores the length and locks the whole buffer
	LockEntireBuffer
)

// PlayFlags modify Play
type PlayFlags uint32

const (
	// PlayLooping restarts at byte 0 when the end of the buffer is reached
	PlayLooping PlayFlags = 1 << iota
)

// Status is the playback state reported by the device
type Status uint32

const (
	StatusPlaying Status = 1 << iota
	StatusLooping
	StatusBufferLost
)

// Playing reports whether the device is currently consuming the buffer
func (s Status) Playing() bool {
	return s&StatusPlaying != 0
}

// BufferDesc describes a secondary buffer to create
type BufferDesc struct {
	Format  audio.Format
	Bytes   int
	Effects bool
}

// PositionNotify binds an event to a byte offset (or OffsetStop)
type PositionNotify struct {
	Offset int
	Event  *Event
}

// Device is an opened output device
type Device interface {
	// CreateBuffer allocates a secondary buffer
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// DuplicateBuffer creates a buffer sharing src's sample memory with
	// its own cursors, status and notifications
	DuplicateBuffer(src Buffer) (Buffer, error)

	// Primary returns the device's primary buffer
	Primary() (Primary, error)

	// Close releases the device
	Close() error
}

// Buffer is a circular secondary buffer
type Buffer interface {
	// Lock returns up to two writable regions covering n bytes at offset.
	// Region b is non-empty only when the range wraps past the end.
	Lock(offset, n int, flags LockFlags) (a, b []byte, err error)

	// Unlock commits the written prefixes of the regions returned by Lock
	Unlock(a, b []byte) error

	Play(flags PlayFlags) error
	Stop() error
	Status() (Status, error)

	// Position returns the play and write cursors in bytes
	Position() (play, write int, err error)
	SetPosition(play int) error

	// SetNotificationPositions replaces every registered notification
	SetNotificationPositions(notify []PositionNotify) error

	Volume() (int, error)
	SetVolume(volume int) error
	Pan() (int, error)
	SetPan(pan int) error
	Frequency() (int, error)
	SetFrequency(hz int) error

	Effects() ([]EffectKind, error)
	SetEffects(kinds []EffectKind) error

	// Release frees the buffer; further calls fail with CodeReleased
	Release() error
}

// Primary is the device-wide buffer carrying the output format and master volume
type Primary interface {
	Format() (audio.Format, error)
	SetFormat(format audio.Format) error
	Volume() (int, error)
	SetVolume(volume int) error
	Release() error
}
