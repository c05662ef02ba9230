// ABOUTME: Audio output interface definition and backend registry
// ABOUTME: Pairs a backend with a software device behind the device contract
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/Sendspin/soundbuffer-go/pkg/device/soft"
)

// Output represents an audio output device
type Output interface {
	// Open starts pulling 16-bit PCM in format from src
	Open(format audio.Format, src io.Reader) error

	// Close stops playback and releases output resources
	Close() error
}

// ErrUnknownBackend is returned by New for names it does not know
var ErrUnknownBackend = errors.New("unknown output backend")

// Backends lists the names New accepts
var Backends = []string{"oto", "malgo", "null"}

// New creates an output backend by name
func New(name string) (Output, error) {
	switch strings.ToLower(name) {
	case "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "null", "none":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Device is a software device whose mix plays through an Output
type Device struct {
	*soft.Device
	out Output
}

// OpenDevice creates a software device and starts the named backend on it
func OpenDevice(backend string, cfg soft.Config) (*Device, error) {
	out, err := New(backend)
	if err != nil {
		return nil, err
	}

	dev := soft.New(cfg)
	if err := out.Open(dev.OutputFormat(), dev); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to open %s output: %w", backend, err)
	}
	return &Device{Device: dev, out: out}, nil
}

// Close stops the backend, then closes the software device
func (d *Device) Close() error {
	return errors.Join(d.out.Close(), d.Device.Close())
}

var _ device.Device = (*Device)(nil)
