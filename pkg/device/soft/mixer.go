// ABOUTME: Output rendering for the software device
// ABOUTME: Sums playing buffers into signed 16-bit PCM and clocks their cursors
package soft

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

// Read renders mixed 16-bit little-endian PCM in OutputFormat into p,
// advancing every playing buffer by the audio it contributed. It returns
// io.EOF once the device is closed.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, io.EOF
	}

	channels := d.format.Channels
	frames := len(p) / (channels * 2)
	if frames == 0 {
		return 0, nil
	}

	samples := frames * channels
	if cap(d.mix) < samples {
		d.mix = make([]int32, samples)
	}
	mix := d.mix[:samples]
	for i := range mix {
		mix[i] = 0
	}

	for _, b := range d.buffers {
		if b.playing {
			b.mixLocked(mix, frames, channels, d.format.SampleRate)
		}
	}

	master := gain(d.volume)
	for i, s := range mix {
		v := audio.ClampInt16(int32(float64(s) * master))
		binary.LittleEndian.PutUint16(p[i*2:], uint16(v))
	}
	return samples * 2, nil
}

// mixLocked adds frames of output to mix and advances the cursor by the
// source frames consumed at the buffer's playback frequency
func (b *Buffer) mixLocked(mix []int32, frames, outChannels, outRate int) {
	step := float64(b.frequencyLocked()) / float64(outRate)
	blockAlign := b.format.BlockAlign()
	bytesPerSample := b.format.BitDepth / 8
	size := b.size()
	left, right := b.gainsLocked()

	for i := 0; i < frames; i++ {
		offset := b.play + int(b.frac+float64(i)*step)*blockAlign
		if offset+blockAlign > size {
			if !b.looping {
				break
			}
			offset %= size
			if offset+blockAlign > size {
				offset = 0
			}
		}

		l := audio.ReadSample(b.mem.data[offset:], b.format.BitDepth)
		r := l
		if b.format.Channels == 2 {
			r = audio.ReadSample(b.mem.data[offset+bytesPerSample:], b.format.BitDepth)
		}

		if outChannels == 1 {
			mix[i] += int32(float64((int32(l)+int32(r))/2) * (left + right) / 2)
			continue
		}
		mix[i*2] += int32(float64(l) * left)
		mix[i*2+1] += int32(float64(r) * right)
	}

	consumed := b.frac + float64(frames)*step
	whole := int(consumed)
	b.frac = consumed - float64(whole)
	b.advanceLocked(whole * blockAlign)
}

// gainsLocked returns the left and right multipliers from volume and pan
func (b *Buffer) gainsLocked() (float64, float64) {
	v := gain(b.volume)
	left, right := v, v
	if b.pan > 0 {
		left *= gain(-b.pan)
	} else if b.pan < 0 {
		right *= gain(b.pan)
	}
	return left, right
}

// gain converts hundredths of a decibel to a linear multiplier
func gain(hundredthsDB int) float64 {
	if hundredthsDB <= device.VolumeMin {
		return 0
	}
	return math.Pow(10, float64(hundredthsDB)/2000)
}
