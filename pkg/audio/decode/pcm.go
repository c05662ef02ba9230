// ABOUTME: Raw PCM loader
// ABOUTME: Wraps headerless little-endian PCM of a known format
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
)

// DecodeRaw reads headerless PCM in the given format. Trailing bytes that
// do not fill a whole frame are dropped.
func DecodeRaw(r io.Reader, format audio.Format) (*PCM, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM: %w", err)
	}
	data = data[:len(data)-len(data)%format.BlockAlign()]
	return &PCM{Format: format, Data: data}, nil
}
