// ABOUTME: Buffer initialization settings
// ABOUTME: Fills format defaults and validates size, format and effects bounds
package soundbuffer

import (
	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

// Config configures Init. Zero format fields take the defaults
// 1 channel, 48000Hz, 16 bits.
type Config struct {
	// Size is the capacity in bytes; ignored when Data is set
	Size int

	// Data is written at offset 0 and fixes the capacity to len(Data)
	Data []byte

	Channels      int
	SampleRate    int
	BitsPerSample int

	// Effects creates a buffer that accepts an effect chain
	Effects bool
}

// resolve applies defaults and validates, returning the format and capacity
func (c Config) resolve() (audio.Format, int, error) {
	format := audio.Format{
		Channels:   c.Channels,
		SampleRate: c.SampleRate,
		BitDepth:   c.BitsPerSample,
	}.WithDefaults()

	size := c.Size
	if c.Data != nil {
		size = len(c.Data)
	}

	if size < device.MinBufferBytes || size > device.MaxBufferBytes {
		return audio.Format{}, 0, rangeError("buffer size %d outside [%d, %d]",
			size, device.MinBufferBytes, device.MaxBufferBytes)
	}
	if err := format.Validate(); err != nil {
		return audio.Format{}, 0, rangeError("%v", err)
	}
	if c.Effects {
		if format.BitDepth != 16 {
			return audio.Format{}, 0, rangeError("effects require 16 bits per sample")
		}
		if need := format.SampleRate * device.FxMinMillis / 1000; size < need {
			return audio.Format{}, 0, rangeError("effects require at least %d bytes, got %d", need, size)
		}
	}
	return format, size, nil
}
