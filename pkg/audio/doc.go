// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the PCM Format type, its bounds and sample conversion functions
// Package audio provides fundamental PCM types shared by the device layer,
// the decoders and the sound buffer core.
//
//   - Format: channel count, sample rate and bits per sample of a PCM stream
//   - BlockAlign / AvgBytesPerSec: the derived byte rates
//   - Validate: the bounds every buffer format must satisfy
//
// It also provides conversions between 8-bit unsigned, 16-bit signed and
// 24-bit samples.
//
// Example:
//
//	format := audio.Format{Channels: 2, SampleRate: 44100, BitDepth: 16}
//	if err := format.Validate(); err != nil {
//	    return err
//	}
//	frames := len(data) / format.BlockAlign()
package audio
