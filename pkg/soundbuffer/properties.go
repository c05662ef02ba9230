// ABOUTME: Sound buffer accessors
// ABOUTME: Format fields, cursors, volume/pan/frequency, loop settings and effects
package soundbuffer

import (
	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

// field reads a value under the lock after the disposed check
func field[T any](b *Buffer, get func() T) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		var zero T
		return zero, err
	}
	return get(), nil
}

// Size returns the capacity in bytes
func (b *Buffer) Size() (int, error) {
	return field(b, func() int { return b.size })
}

// Total returns the capacity in frames
func (b *Buffer) Total() (int, error) {
	return field(b, func() int { return b.size / b.format.BlockAlign() })
}

// Format returns the PCM format the buffer was initialized with
func (b *Buffer) Format() (audio.Format, error) {
	return field(b, func() audio.Format { return b.format })
}

// Channels returns the channel count
func (b *Buffer) Channels() (int, error) {
	return field(b, func() int { return b.format.Channels })
}

// SampleRate returns frames per second
func (b *Buffer) SampleRate() (int, error) {
	return field(b, func() int { return b.format.SampleRate })
}

// BitsPerSample returns the sample width in bits
func (b *Buffer) BitsPerSample() (int, error) {
	return field(b, func() int { return b.format.BitDepth })
}

// BlockAlign returns the size of one frame in bytes
func (b *Buffer) BlockAlign() (int, error) {
	return field(b, func() int { return b.format.BlockAlign() })
}

// AvgBytesPerSec returns the byte rate of the format
func (b *Buffer) AvgBytesPerSec() (int, error) {
	return field(b, func() int { return b.format.AvgBytesPerSec() })
}

// EffectsEnabled reports whether the buffer was created with effects
func (b *Buffer) EffectsEnabled() (bool, error) {
	return field(b, func() bool { return b.effects })
}

func (b *Buffer) toBytes(sample int) int {
	return sample * b.format.BlockAlign()
}

func (b *Buffer) toSamples(raw int) int {
	return raw / b.format.BlockAlign()
}

// RawPosition returns the play cursor in bytes
func (b *Buffer) RawPosition() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return 0, err
	}
	play, _, err := b.hw.Position()
	if err != nil {
		return 0, deviceError("get position", err)
	}
	return play, nil
}

// SetRawPosition moves the play cursor to a byte offset
func (b *Buffer) SetRawPosition(raw int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	return b.setRawPositionLocked(raw)
}

func (b *Buffer) setRawPositionLocked(raw int) error {
	if raw < 0 || raw >= b.size {
		return rangeError("position %d outside buffer of %d bytes", raw, b.size)
	}
	return paramError("set position", b.hw.SetPosition(raw))
}

// Position returns the play cursor in frames
func (b *Buffer) Position() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return 0, err
	}
	play, _, err := b.hw.Position()
	if err != nil {
		return 0, deviceError("get position", err)
	}
	return b.toSamples(play), nil
}

// SetPosition moves the play cursor to a frame
func (b *Buffer) SetPosition(sample int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	return b.setRawPositionLocked(b.toBytes(sample))
}

// Volume returns the attenuation in hundredths of a decibel
func (b *Buffer) Volume() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return 0, err
	}
	v, err := b.hw.Volume()
	if err != nil {
		return 0, deviceError("get volume", err)
	}
	return v, nil
}

// SetVolume sets the attenuation in [-10000, 0] hundredths of a decibel
func (b *Buffer) SetVolume(volume int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	return paramError("set volume", b.hw.SetVolume(volume))
}

// Pan returns the balance, -10000 (left) to 10000 (right)
func (b *Buffer) Pan() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return 0, err
	}
	v, err := b.hw.Pan()
	if err != nil {
		return 0, deviceError("get pan", err)
	}
	return v, nil
}

// SetPan sets the pan between device.PanLeft and device.PanRight
func (b *Buffer) SetPan(pan int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	return paramError("set pan", b.hw.SetPan(pan))
}

// Frequency returns the playback rate in Hz
func (b *Buffer) Frequency() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return 0, err
	}
	v, err := b.hw.Frequency()
	if err != nil {
		return 0, deviceError("get frequency", err)
	}
	return v, nil
}

// SetFrequency sets the playback rate; 0 restores the format rate
func (b *Buffer) SetFrequency(hz int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	return paramError("set frequency", b.hw.SetFrequency(hz))
}

// Loop reports whether the interior loop between LoopStart and LoopEnd is on
func (b *Buffer) Loop() (bool, error) {
	return field(b, func() bool { return b.loop })
}

// SetLoop turns interior looping at the loop point on or off
func (b *Buffer) SetLoop(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	b.loop = on
	return nil
}

// LoopStart returns the frame playback jumps back to at the loop point
func (b *Buffer) LoopStart() (int, error) {
	return field(b, func() int { return b.toSamples(b.loopStart) })
}

// SetLoopStart sets the loop start frame; it may not pass LoopEnd
func (b *Buffer) SetLoopStart(sample int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	raw := b.toBytes(sample)
	if raw < 0 || raw > b.size {
		return rangeError("loop start %d outside buffer of %d bytes", raw, b.size)
	}
	if raw > b.loopEnd {
		return rangeError("loop start %d after loop end %d", raw, b.loopEnd)
	}
	b.loopStart = raw
	return nil
}

// LoopEnd returns the frame of the loop point
func (b *Buffer) LoopEnd() (int, error) {
	return field(b, func() int { return b.toSamples(b.loopEnd) })
}

// SetLoopEnd moves the loop point, re-registering the notifications
func (b *Buffer) SetLoopEnd(sample int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	raw := b.toBytes(sample)
	if raw < 0 || raw > b.size {
		return rangeError("loop end %d outside buffer of %d bytes", raw, b.size)
	}
	if raw < b.loopStart {
		return rangeError("loop end %d before loop start %d", raw, b.loopStart)
	}
	return b.rebuildLocked(b.notify.offsets, raw)
}

// SetLoopRange sets both loop bounds at once
func (b *Buffer) SetLoopRange(start, end int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	rawStart, rawEnd := b.toBytes(start), b.toBytes(end)
	if rawStart < 0 || rawEnd > b.size || rawStart > rawEnd {
		return rangeError("loop range [%d, %d] invalid for buffer of %d bytes", rawStart, rawEnd, b.size)
	}
	if err := b.rebuildLocked(b.notify.offsets, rawEnd); err != nil {
		return err
	}
	b.loopStart = rawStart
	return nil
}

// LoopCount returns how many times the loop point repositions; 0 is forever
func (b *Buffer) LoopCount() (int, error) {
	return field(b, func() int { return b.loopCount })
}

// SetLoopCount sets the loop limit, clamping the counter to it
func (b *Buffer) SetLoopCount(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	if n < 0 {
		return rangeError("loop count %d is negative", n)
	}
	b.loopCount = n
	if n != 0 && b.loopCounter > n {
		b.loopCounter = n
	}
	return nil
}

// LoopCounter returns how many loop points have been passed
func (b *Buffer) LoopCounter() (int, error) {
	return field(b, func() int { return b.loopCounter })
}

// SetLoopCounter sets the number of passes already made; it may not exceed
// a nonzero LoopCount
func (b *Buffer) SetLoopCounter(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	if n < 0 || (b.loopCount != 0 && n > b.loopCount) {
		return rangeError("loop counter %d outside [0, %d]", n, b.loopCount)
	}
	b.loopCounter = n
	return nil
}

// Notify returns the user marker frames in registration order
func (b *Buffer) Notify() ([]int, error) {
	return field(b, func() []int {
		markers := make([]int, len(b.notify.offsets))
		for i, raw := range b.notify.offsets {
			markers[i] = b.toSamples(raw)
		}
		return markers
	})
}

// SetNotify replaces the user markers. Wait reports the index of the
// marker whose frame the cursor crossed.
func (b *Buffer) SetNotify(samples ...int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	offsets := make([]int, len(samples))
	for i, s := range samples {
		offsets[i] = b.toBytes(s)
	}
	return b.rebuildLocked(offsets, b.loopEnd)
}

// Jump moves the cursor to user marker i
func (b *Buffer) Jump(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return err
	}
	if i < 0 || i >= len(b.notify.offsets) {
		return rangeError("marker %d of %d", i, len(b.notify.offsets))
	}
	return b.setRawPositionLocked(b.notify.offsets[i])
}

// Effects returns the effect chain
func (b *Buffer) Effects() ([]device.EffectKind, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.liveLocked(); err != nil {
		return nil, err
	}
	if !b.effects {
		return nil, ErrEffectsUnsupported
	}
	kinds, err := b.hw.Effects()
	if err != nil {
		return nil, deviceError("get effects", err)
	}
	return kinds, nil
}

// SetEffects replaces the effect chain, stopping and resuming playback
// around the change. An empty chain removes every effect.
func (b *Buffer) SetEffects(kinds ...device.EffectKind) error {
	for _, k := range kinds {
		if !k.Valid() {
			return rangeError("unknown effect %d", int(k))
		}
	}
	return b.StopAndRun(func(b *Buffer) error {
		b.mu.Lock()
		defer b.mu.Unlock()

		if err := b.liveLocked(); err != nil {
			return err
		}
		if !b.effects {
			return ErrEffectsUnsupported
		}
		if err := b.hw.SetEffects(kinds); err != nil {
			return deviceError("set effects", err)
		}
		b.logger.Debug("Effect chain set", "effects", kinds)
		return nil
	})
}
