// ABOUTME: Tests for wrap-safe buffer writes
// ABOUTME: Tests wrap policy, bounds, region release, refresh and content dump
package soundbuffer

import (
	"bytes"
	"errors"
	"testing"
)

func seq(n int, start byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = start + byte(i)
	}
	return data
}

func TestWriteWrap(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	data := seq(30, 1)

	n, err := b.Write(data, 90, WithWrap())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 30 {
		t.Fatalf("Expected 30 bytes written, got %d", n)
	}

	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got[90:100], data[:10]) {
		t.Errorf("Expected tail %v, got %v", data[:10], got[90:100])
	}
	if !bytes.Equal(got[0:20], data[10:]) {
		t.Errorf("Expected head %v, got %v", data[10:], got[0:20])
	}
	if softOf(t, b).Locked() {
		t.Error("Expected regions released after write")
	}
}

func TestWriteBounds(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	tests := []struct {
		name    string
		data    int
		offset  int
		opts    []WriteOption
		want    int
		wantErr error
	}{
		{"inside", 10, 0, nil, 10, nil},
		{"to end", 10, 90, nil, 10, nil},
		{"crosses end without wrap", 30, 90, nil, 0, ErrRange},
		{"negative offset", 1, -1, nil, 0, ErrRange},
		{"offset past end", 1, 101, nil, 0, ErrRange},
		{"larger than buffer", 101, 0, []WriteOption{WithWrap()}, 0, ErrRange},
		{"whole buffer", 100, 0, nil, 100, nil},
		{"empty", 0, 50, nil, 0, nil},
		{"at end with wrap", 10, 100, []WriteOption{WithWrap()}, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := b.Bytes()
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}

			n, err := b.Write(seq(tt.data, 100), tt.offset, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				after, _ := b.Bytes()
				if !bytes.Equal(before, after) {
					t.Error("Rejected write changed the buffer")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if n != tt.want {
				t.Errorf("Expected %d bytes, got %d", tt.want, n)
			}
		})
	}
}

func TestWriteFromWriteCursor(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.SetRawPosition(40); err != nil {
		t.Fatalf("SetRawPosition: %v", err)
	}
	// stopped, so the write cursor sits on the play cursor
	if _, err := b.Write([]byte{9, 9}, 0, FromWriteCursor()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := b.Bytes()
	if got[40] != 9 || got[41] != 9 {
		t.Errorf("Expected write at cursor 40, got %v", got[38:44])
	}
}

func TestForceRefresh(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)
	hw := softOf(t, b)

	before := hw.Refreshes()
	if err := b.ForceRefresh(); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if hw.Refreshes() != before+1 {
		t.Errorf("Expected one lock/unlock pair, got %d", hw.Refreshes()-before)
	}
	if hw.Locked() {
		t.Error("Expected no outstanding lock")
	}
}

func TestBytesWhilePlaying(t *testing.T) {
	out := newTestOutput(t)
	b := newTestBuffer(t, out, 100)

	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if _, err := b.Bytes(); !errors.Is(err, ErrNowPlaying) {
		t.Errorf("Expected ErrNowPlaying, got %v", err)
	}

	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := b.Bytes(); err != nil {
		t.Errorf("Expected Bytes to work while paused, got %v", err)
	}
}
