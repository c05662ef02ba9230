// ABOUTME: File loader dispatching on extension
// ABOUTME: Defines the decoded PCM result shared by every codec
package decode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
)

var (
	// ErrUnknownExtension is returned by Load for files it has no decoder for
	ErrUnknownExtension = errors.New("unknown audio file extension")

	// ErrUnsupportedFormat is returned for streams a decoder cannot convert
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// PCM is decoded interleaved little-endian audio
type PCM struct {
	Format audio.Format
	Data   []byte
}

// Frames returns the number of whole frames in Data
func (p *PCM) Frames() int {
	if p.Format.BlockAlign() == 0 {
		return 0
	}
	return len(p.Data) / p.Format.BlockAlign()
}

// Decoder turns an encoded stream into PCM
type Decoder func(r io.ReadSeeker) (*PCM, error)

var decoders = map[string]Decoder{
	".wav":  DecodeWAV,
	".wave": DecodeWAV,
	".mp3":  DecodeMP3,
	".flac": DecodeFLAC,
	".ogg":  DecodeVorbis,
	".oga":  DecodeVorbis,
}

// ForExtension returns the decoder registered for a file extension
func ForExtension(ext string) (Decoder, error) {
	dec, ok := decoders[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	return dec, nil
}

// Load decodes the file at path, picking the decoder from its extension
func Load(path string) (*PCM, error) {
	dec, err := ForExtension(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	pcm, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	slog.Debug("Loaded audio file",
		"file", filepath.Base(path),
		"format", pcm.Format.String(),
		"frames", pcm.Frames(),
	)
	return pcm, nil
}

// fromInt16 packs interleaved samples of any channel count into 16-bit PCM,
// keeping at most two channels
func fromInt16(samples []int16, channels, sampleRate int) (*PCM, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	outChannels := min(channels, 2)
	format := audio.Format{Channels: outChannels, SampleRate: sampleRate, BitDepth: 16}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	frames := len(samples) / channels
	data := make([]byte, frames*format.BlockAlign())
	for i := 0; i < frames; i++ {
		for ch := 0; ch < outChannels; ch++ {
			pos := (i*outChannels + ch) * 2
			audio.PutSample(data[pos:], 16, samples[i*channels+ch])
		}
	}
	return &PCM{Format: format, Data: data}, nil
}

// scaleToInt16 converts a signed sample of the given bit depth to 16 bits
func scaleToInt16(v int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth < 16:
		return int16(v << (16 - bitDepth))
	default:
		return int16(v)
	}
}
