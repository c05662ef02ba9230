// ABOUTME: Tests for sound buffer lifecycle and state machine
// ABOUTME: Tests init validation, duplication, dispose guard and stopAndRun
package soundbuffer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/Sendspin/soundbuffer-go/pkg/device/soft"
)

// bytePerFrame makes byte offsets and frame positions identical
var bytePerFrame = Config{Channels: 1, SampleRate: 8000, BitsPerSample: 8}

func newSoftDevice() *soft.Device {
	return soft.New(soft.Config{})
}

func newTestOutput(t *testing.T) *OutputDevice {
	t.Helper()
	return NewOutputDevice(func() (device.Device, error) {
		return newSoftDevice(), nil
	})
}

func newTestBuffer(t *testing.T, out *OutputDevice, size int) *Buffer {
	t.Helper()
	cfg := bytePerFrame
	cfg.Size = size
	b, err := New(out, cfg)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	t.Cleanup(func() { b.Dispose() })
	return b
}

// softOf returns the software device buffer so tests can move the cursor
func softOf(t *testing.T, b *Buffer) *soft.Buffer {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	hw, ok := b.hw.(*soft.Buffer)
	if !ok {
		t.Fatalf("buffer is not backed by the software device: %T", b.hw)
	}
	return hw
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInitValidation(t *testing.T) {
	out := newTestOutput(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"defaults", Config{Size: 4096}, nil},
		{"too small", Config{Size: device.MinBufferBytes - 1}, ErrRange},
		{"too large", Config{Size: device.MaxBufferBytes + 1}, ErrRange},
		{"bad bits", Config{Size: 4096, BitsPerSample: 12}, ErrRange},
		{"bad rate", Config{Size: 4096, SampleRate: 50}, ErrRange},
		{"data sets size", Config{Size: 1, Data: make([]byte, 64)}, nil},
		{"effects need 16 bits", Config{Size: 48000, BitsPerSample: 8, Effects: true}, ErrRange},
		{"effects too small", Config{Size: 100, Effects: true}, ErrRange},
		{"effects", Config{Size: 48000 * device.FxMinMillis / 1000, Effects: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(out, tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer b.Dispose()

			size, err := b.Size()
			if err != nil {
				t.Fatalf("Size: %v", err)
			}
			want := tt.cfg.Size
			if tt.cfg.Data != nil {
				want = len(tt.cfg.Data)
			}
			if size != want {
				t.Errorf("Expected size %d, got %d", want, size)
			}
		})
	}

	if out.Refs() != 0 {
		t.Errorf("Expected every reference released, got %d", out.Refs())
	}
}

func TestInitTwice(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 64)

	if err := b.Init(Config{Size: 64}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("Expected ErrAlreadyInitialized, got %v", err)
	}
	if !errors.Is(ErrAlreadyInitialized, ErrInvalidOperation) {
		t.Error("ErrAlreadyInitialized should be an invalid operation")
	}
}

func TestInitWritesData(t *testing.T) {
	out := newTestOutput(t)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	cfg := bytePerFrame
	cfg.Data = data
	b, err := New(out, cfg)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	defer b.Dispose()

	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %v, got %v", data, got)
	}
}

func TestStateMachine(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	hw := softOf(t, b)

	if b.State() != Stopped {
		t.Fatalf("Expected stopped after init, got %s", b.State())
	}

	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if b.State() != Playing {
		t.Errorf("Expected playing, got %s", b.State())
	}
	if playing, _ := b.Playing(); !playing {
		t.Error("Expected Playing to report true")
	}

	hw.Advance(30)
	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if b.State() != Paused {
		t.Errorf("Expected paused, got %s", b.State())
	}
	if pausing, _ := b.Pausing(); !pausing {
		t.Error("Expected Pausing with a non-zero cursor")
	}
	if pos, _ := b.Position(); pos != 30 {
		t.Errorf("Expected pause to keep cursor 30, got %d", pos)
	}

	if err := b.Repeat(); err != nil {
		t.Fatalf("Repeat: %v", err)
	}
	if b.State() != PlayingLooping {
		t.Errorf("Expected playing-looping, got %s", b.State())
	}
	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if repeating, _ := b.Repeating(); !repeating {
		t.Error("Expected a buffer paused from repeat to report Repeating")
	}

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if b.State() != Stopped {
		t.Errorf("Expected stopped, got %s", b.State())
	}
	if pos, _ := b.Position(); pos != 0 {
		t.Errorf("Expected stop to rewind, got %d", pos)
	}
	if pausing, _ := b.Pausing(); pausing {
		t.Error("Expected Pausing false at cursor 0")
	}
}

func TestPauseWhenStoppedIsNoop(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if b.State() != Stopped {
		t.Errorf("Expected stopped, got %s", b.State())
	}
}

func TestStopClearsLoopCounter(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.SetLoopCount(5); err != nil {
		t.Fatalf("SetLoopCount: %v", err)
	}
	if err := b.SetLoopCounter(3); err != nil {
		t.Fatalf("SetLoopCounter: %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if n, _ := b.LoopCounter(); n != 0 {
		t.Errorf("Expected counter 0 after stop, got %d", n)
	}
}

func TestStopAndRun(t *testing.T) {
	out := newTestOutput(t)

	t.Run("resumes prior mode", func(t *testing.T) {
		b := newTestBuffer(t, out, 100)
		if err := b.Repeat(); err != nil {
			t.Fatalf("Repeat: %v", err)
		}

		ran := false
		err := b.StopAndRun(func(b *Buffer) error {
			ran = true
			status, err := softOf(t, b).Status()
			if err != nil {
				return err
			}
			if status.Playing() {
				t.Error("Expected device stopped while fn runs")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("StopAndRun: %v", err)
		}
		if !ran {
			t.Fatal("fn was not called")
		}
		if b.State() != PlayingLooping {
			t.Errorf("Expected playing-looping after resume, got %s", b.State())
		}
		if playing, _ := b.Playing(); !playing {
			t.Error("Expected device playing after resume")
		}
	})

	t.Run("stopped stays stopped", func(t *testing.T) {
		b := newTestBuffer(t, out, 100)
		if err := b.StopAndRun(func(*Buffer) error { return nil }); err != nil {
			t.Fatalf("StopAndRun: %v", err)
		}
		if b.State() != Stopped {
			t.Errorf("Expected stopped, got %s", b.State())
		}
	})

	t.Run("fn error still resumes", func(t *testing.T) {
		b := newTestBuffer(t, out, 100)
		if err := b.Play(); err != nil {
			t.Fatalf("Play: %v", err)
		}
		boom := errors.New("boom")
		if err := b.StopAndRun(func(*Buffer) error { return boom }); !errors.Is(err, boom) {
			t.Errorf("Expected fn error, got %v", err)
		}
		if b.State() != Playing {
			t.Errorf("Expected playing after resume, got %s", b.State())
		}
	})
}

func TestEffects(t *testing.T) {
	out := newTestOutput(t)

	fx, err := New(out, Config{Size: 48000, Effects: true})
	if err != nil {
		t.Fatalf("Failed to create effects buffer: %v", err)
	}
	defer fx.Dispose()

	if err := fx.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := fx.SetEffects(device.EffectEcho, device.EffectChorus); err != nil {
		t.Fatalf("SetEffects while playing: %v", err)
	}
	kinds, err := fx.Effects()
	if err != nil {
		t.Fatalf("Effects: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != device.EffectEcho || kinds[1] != device.EffectChorus {
		t.Errorf("Unexpected chain %v", kinds)
	}
	if fx.State() != Playing {
		t.Errorf("Expected playback resumed, got %s", fx.State())
	}

	if err := fx.SetEffects(); err != nil {
		t.Fatalf("Clearing effects: %v", err)
	}
	if kinds, _ := fx.Effects(); len(kinds) != 0 {
		t.Errorf("Expected empty chain, got %v", kinds)
	}

	if err := fx.SetEffects(device.EffectKind(99)); !errors.Is(err, ErrRange) {
		t.Errorf("Expected ErrRange for unknown effect, got %v", err)
	}

	plain := newTestBuffer(t, out, 100)
	if err := plain.SetEffects(device.EffectEcho); !errors.Is(err, ErrEffectsUnsupported) {
		t.Errorf("Expected ErrEffectsUnsupported, got %v", err)
	}
	if _, err := plain.Effects(); !errors.Is(err, ErrEffectsUnsupported) {
		t.Errorf("Expected ErrEffectsUnsupported, got %v", err)
	}
}

func TestDuplicate(t *testing.T) {
	out := newTestOutput(t)
	src := newTestBuffer(t, out, 100)

	if err := src.SetLoop(true); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}
	if err := src.SetLoopRange(10, 60); err != nil {
		t.Fatalf("SetLoopRange: %v", err)
	}
	if err := src.SetLoopCount(4); err != nil {
		t.Fatalf("SetLoopCount: %v", err)
	}
	if err := src.SetLoopCounter(2); err != nil {
		t.Fatalf("SetLoopCounter: %v", err)
	}
	if err := src.SetNotify(5, 50); err != nil {
		t.Fatalf("SetNotify: %v", err)
	}

	dup, err := src.Duplicate()
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	defer dup.Dispose()

	if !src.IsOrigin() {
		t.Error("Expected source to be an origin")
	}
	if dup.IsOrigin() {
		t.Error("Expected duplicate not to be an origin")
	}
	if out.Refs() != 2 {
		t.Errorf("Expected 2 references, got %d", out.Refs())
	}

	if start, _ := dup.LoopStart(); start != 10 {
		t.Errorf("Expected loop start 10, got %d", start)
	}
	if end, _ := dup.LoopEnd(); end != 60 {
		t.Errorf("Expected loop end 60, got %d", end)
	}
	if count, _ := dup.LoopCount(); count != 4 {
		t.Errorf("Expected loop count 4, got %d", count)
	}
	if counter, _ := dup.LoopCounter(); counter != 0 {
		t.Errorf("Expected a fresh loop counter, got %d", counter)
	}
	if markers, _ := dup.Notify(); len(markers) != 2 || markers[0] != 5 || markers[1] != 50 {
		t.Errorf("Expected markers [5 50], got %v", markers)
	}

	// samples are shared
	if _, err := src.Write([]byte{7, 7, 7}, 20); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := dup.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(data[20:23], []byte{7, 7, 7}) {
		t.Errorf("Expected duplicate to see source samples, got %v", data[20:23])
	}

	if err := src.Dispose(); err != nil {
		t.Fatalf("Dispose source: %v", err)
	}
	if dup.Disposed() {
		t.Error("Duplicate should outlive its source")
	}
	if _, err := dup.Size(); err != nil {
		t.Errorf("Duplicate unusable after source dispose: %v", err)
	}
	if _, err := src.Duplicate(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed duplicating a disposed buffer, got %v", err)
	}
}

func TestDuplicateEffectsBuffer(t *testing.T) {
	out := newTestOutput(t)
	fx, err := New(out, Config{Size: 48000, Effects: true})
	if err != nil {
		t.Fatalf("Failed to create effects buffer: %v", err)
	}
	defer fx.Dispose()

	_, err = fx.Duplicate()
	var devErr *DeviceError
	if !errors.As(err, &devErr) || devErr.Code != device.CodeInvalidCall {
		t.Fatalf("Expected invalid-call device error, got %v", err)
	}
	if !errors.Is(err, ErrDevice) {
		t.Error("Expected error to match ErrDevice")
	}
	if out.Refs() != 1 {
		t.Errorf("Expected failed duplicate to release its reference, got %d refs", out.Refs())
	}
}

func TestInitCopyIntoSelf(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.InitCopy(b); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Expected ErrInvalidOperation, got %v", err)
	}
	if err := b.InitCopy(newTestBuffer(t, out, 100)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Expected ErrInvalidOperation copying into an initialized buffer, got %v", err)
	}
}

func TestDisposedGuard(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	if err := b.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := b.Dispose(); err != nil {
		t.Errorf("Second dispose should be a no-op, got %v", err)
	}
	if b.State() != Disposed {
		t.Errorf("Expected disposed state, got %s", b.State())
	}

	get := func(_ any, err error) error { return err }
	tests := []struct {
		name string
		op   func() error
	}{
		{"Write", func() error { return get(b.Write([]byte{1}, 0)) }},
		{"ForceRefresh", b.ForceRefresh},
		{"Bytes", func() error { return get(b.Bytes()) }},
		{"Play", b.Play},
		{"Repeat", b.Repeat},
		{"Stop", b.Stop},
		{"Pause", b.Pause},
		{"StopAndRun", func() error { return b.StopAndRun(func(*Buffer) error { return nil }) }},
		{"Playing", func() error { return get(b.Playing()) }},
		{"Pausing", func() error { return get(b.Pausing()) }},
		{"Repeating", func() error { return get(b.Repeating()) }},
		{"Size", func() error { return get(b.Size()) }},
		{"Total", func() error { return get(b.Total()) }},
		{"Format", func() error { return get(b.Format()) }},
		{"RawPosition", func() error { return get(b.RawPosition()) }},
		{"SetRawPosition", func() error { return b.SetRawPosition(0) }},
		{"Position", func() error { return get(b.Position()) }},
		{"SetPosition", func() error { return b.SetPosition(0) }},
		{"Volume", func() error { return get(b.Volume()) }},
		{"SetVolume", func() error { return b.SetVolume(0) }},
		{"Pan", func() error { return get(b.Pan()) }},
		{"SetPan", func() error { return b.SetPan(0) }},
		{"Frequency", func() error { return get(b.Frequency()) }},
		{"SetFrequency", func() error { return b.SetFrequency(0) }},
		{"Loop", func() error { return get(b.Loop()) }},
		{"SetLoop", func() error { return b.SetLoop(true) }},
		{"SetLoopStart", func() error { return b.SetLoopStart(0) }},
		{"SetLoopEnd", func() error { return b.SetLoopEnd(0) }},
		{"SetLoopRange", func() error { return b.SetLoopRange(0, 0) }},
		{"SetLoopCount", func() error { return b.SetLoopCount(1) }},
		{"SetLoopCounter", func() error { return b.SetLoopCounter(0) }},
		{"Notify", func() error { return get(b.Notify()) }},
		{"SetNotify", func() error { return b.SetNotify(1) }},
		{"Jump", func() error { return b.Jump(0) }},
		{"Effects", func() error { return get(b.Effects()) }},
		{"SetEffects", func() error { return b.SetEffects() }},
		{"Duplicate", func() error { return get(b.Duplicate()) }},
		{"Wait", func() error { return get(b.Wait(t.Context(), 0)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, ErrDisposed) {
				t.Errorf("Expected ErrDisposed, got %v", err)
			}
		})
	}
}

func TestDisposeReleasesDevice(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	hw := softOf(t, b)
	if err := b.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if _, err := hw.Status(); device.CodeOf(err) != device.CodeReleased {
		t.Errorf("Expected device buffer released, got %v", err)
	}
	if out.Refs() != 0 {
		t.Errorf("Expected 0 references, got %d", out.Refs())
	}
}
