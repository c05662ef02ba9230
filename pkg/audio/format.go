// ABOUTME: PCM format definition and validation
// ABOUTME: Derives block alignment and byte rate and checks device bounds
package audio

import (
	"errors"
	"fmt"
)

const (
	// Sample rate bounds accepted by the output device
	MinSampleRate = 100
	MaxSampleRate = 200000

	// Default format used when a field is left zero
	DefaultChannels   = 1
	DefaultSampleRate = 48000
	DefaultBitDepth   = 16
)

// ErrInvalidFormat is returned by Validate for out-of-range formats
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes an uncompressed PCM stream
type Format struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

// DefaultFormat returns the 1ch/48000Hz/16-bit format
func DefaultFormat() Format {
	return Format{
		Channels:   DefaultChannels,
		SampleRate: DefaultSampleRate,
		BitDepth:   DefaultBitDepth,
	}
}

// WithDefaults fills zero fields from DefaultFormat
func (f Format) WithDefaults() Format {
	if f.Channels == 0 {
		f.Channels = DefaultChannels
	}
	if f.SampleRate == 0 {
		f.SampleRate = DefaultSampleRate
	}
	if f.BitDepth == 0 {
		f.BitDepth = DefaultBitDepth
	}
	return f
}

// BlockAlign returns the size of one frame in bytes
func (f Format) BlockAlign() int {
	return f.Channels * f.BitDepth / 8
}

// AvgBytesPerSec returns the byte rate of the stream
func (f Format) AvgBytesPerSec() int {
	return f.SampleRate * f.BlockAlign()
}

// BytesForDuration returns the byte count of ms milliseconds, frame aligned
func (f Format) BytesForDuration(ms int) int {
	frames := f.SampleRate * ms / 1000
	return frames * f.BlockAlign()
}

// Validate checks channels (1 or 2), bits (8 or 16) and the sample rate range
func (f Format) Validate() error {
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidFormat, f.Channels)
	}
	if f.SampleRate < MinSampleRate || f.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate %d out of range [%d, %d]",
			ErrInvalidFormat, f.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if f.BitDepth != 8 && f.BitDepth != 16 {
		return fmt.Errorf("%w: bits per sample must be 8 or 16, got %d", ErrInvalidFormat, f.BitDepth)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}
