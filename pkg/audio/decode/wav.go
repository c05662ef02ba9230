// ABOUTME: WAV reader and writer
// ABOUTME: Uses go-audio/wav for RIFF parsing and encoding
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the RIFF format tag for integer PCM
const wavFormatPCM = 1

// DecodeWAV decodes an integer PCM WAV stream to 16-bit PCM
func DecodeWAV(r io.ReadSeeker) (*PCM, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d is not integer PCM", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV samples: %w", err)
	}

	bits := int(d.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		if bits == 8 {
			samples[i] = audio.SampleFromUint8(byte(v))
			continue
		}
		samples[i] = scaleToInt16(int32(v), bits)
	}
	return fromInt16(samples, int(d.NumChans), int(d.SampleRate))
}

// EncodeWAV writes pcm as a WAV stream
func EncodeWAV(w io.WriteSeeker, pcm *PCM) error {
	if err := pcm.Format.Validate(); err != nil {
		return err
	}
	bits := pcm.Format.BitDepth
	step := bits / 8

	data := make([]int, len(pcm.Data)/step)
	for i := range data {
		if bits == 8 {
			data[i] = int(pcm.Data[i])
			continue
		}
		data[i] = int(audio.ReadSample(pcm.Data[i*step:], bits))
	}

	enc := wav.NewEncoder(w, pcm.Format.SampleRate, bits, pcm.Format.Channels, wavFormatPCM)
	err := enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: pcm.Format.Channels,
			SampleRate:  pcm.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bits,
	})
	if err != nil {
		enc.Close()
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	return enc.Close()
}
