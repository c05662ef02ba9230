// ABOUTME: Tests for audio format and sample helpers
// ABOUTME: Tests derived byte rates, validation bounds and sample conversions
package audio

import (
	"errors"
	"testing"
)

func TestFormatDerived(t *testing.T) {
	tests := []struct {
		name       string
		format     Format
		blockAlign int
		bytesSec   int
	}{
		{"mono 8-bit", Format{Channels: 1, SampleRate: 8000, BitDepth: 8}, 1, 8000},
		{"mono 16-bit", Format{Channels: 1, SampleRate: 48000, BitDepth: 16}, 2, 96000},
		{"stereo 8-bit", Format{Channels: 2, SampleRate: 22050, BitDepth: 8}, 2, 44100},
		{"stereo 16-bit", Format{Channels: 2, SampleRate: 44100, BitDepth: 16}, 4, 176400},
		{"max rate", Format{Channels: 2, SampleRate: MaxSampleRate, BitDepth: 16}, 4, 800000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BlockAlign(); got != tt.blockAlign {
				t.Errorf("expected block align %d, got %d", tt.blockAlign, got)
			}
			if got := tt.format.AvgBytesPerSec(); got != tt.bytesSec {
				t.Errorf("expected %d bytes/sec, got %d", tt.bytesSec, got)
			}
			if err := tt.format.Validate(); err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name   string
		format Format
	}{
		{"zero channels", Format{Channels: 0, SampleRate: 48000, BitDepth: 16}},
		{"three channels", Format{Channels: 3, SampleRate: 48000, BitDepth: 16}},
		{"rate too low", Format{Channels: 1, SampleRate: MinSampleRate - 1, BitDepth: 16}},
		{"rate too high", Format{Channels: 1, SampleRate: MaxSampleRate + 1, BitDepth: 16}},
		{"24-bit", Format{Channels: 1, SampleRate: 48000, BitDepth: 24}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestFormatWithDefaults(t *testing.T) {
	f := Format{}.WithDefaults()
	if f != DefaultFormat() {
		t.Errorf("expected %v, got %v", DefaultFormat(), f)
	}

	f = Format{Channels: 2}.WithDefaults()
	if f.Channels != 2 || f.SampleRate != DefaultSampleRate || f.BitDepth != DefaultBitDepth {
		t.Errorf("unexpected defaults: %v", f)
	}
}

func TestBytesForDuration(t *testing.T) {
	f := Format{Channels: 1, SampleRate: 44100, BitDepth: 16}
	if got := f.BytesForDuration(150); got != 6615*2 {
		t.Errorf("expected %d, got %d", 6615*2, got)
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"24bit positive", 1000000, 3906},
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestUint8Conversion(t *testing.T) {
	tests := []struct {
		name  string
		input byte
		want  int16
	}{
		{"silence", 128, 0},
		{"min", 0, -32768},
		{"max", 255, 127 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampleFromUint8(tt.input)
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			if back := SampleToUint8(got); back != tt.input {
				t.Errorf("expected round trip %d, got %d", tt.input, back)
			}
		})
	}
}

func TestClampInt16(t *testing.T) {
	if got := ClampInt16(40000); got != 32767 {
		t.Errorf("expected 32767, got %d", got)
	}
	if got := ClampInt16(-40000); got != -32768 {
		t.Errorf("expected -32768, got %d", got)
	}
	if got := ClampInt16(1234); got != 1234 {
		t.Errorf("expected 1234, got %d", got)
	}
}

func TestReadPutSample(t *testing.T) {
	buf := make([]byte, 2)
	PutSample(buf, 16, -1234)
	if got := ReadSample(buf, 16); got != -1234 {
		t.Errorf("expected -1234, got %d", got)
	}

	PutSample(buf, 8, 0)
	if buf[0] != 128 {
		t.Errorf("expected 8-bit silence 128, got %d", buf[0])
	}
}
