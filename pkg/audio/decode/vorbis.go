// ABOUTME: Ogg Vorbis decoder
// ABOUTME: Decodes float samples with jfreymuth/oggvorbis and quantizes to 16 bits
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// DecodeVorbis decodes an Ogg Vorbis stream to 16-bit PCM
func DecodeVorbis(r io.ReadSeeker) (*PCM, error) {
	values, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}

	samples := make([]int16, len(values))
	for i, v := range values {
		samples[i] = audio.ClampInt16(int32(v * 32767))
	}
	return fromInt16(samples, format.Channels, format.SampleRate)
}
