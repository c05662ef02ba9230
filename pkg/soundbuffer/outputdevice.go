// ABOUTME: Reference-counted shared output device
// ABOUTME: Opens the device on first acquire and closes it on last release
package soundbuffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/google/uuid"
)

// Opener opens the hardware device behind an OutputDevice
type Opener func() (device.Device, error)

// OutputDevice shares one device between every buffer created from it.
// The device is opened when the reference count goes from 0 to 1 and
// closed when it returns to 0.
type OutputDevice struct {
	mu         sync.Mutex
	open       Opener
	refs       int
	generation uint64
	dev        device.Device
	primary    device.Primary

	// lifecycle serializes Startup and Shutdown
	lifecycle sync.Mutex
	reserved  *DeviceRef

	logger *slog.Logger
}

// DeviceRef is one reference on an OutputDevice
type DeviceRef struct {
	out        *OutputDevice
	dev        device.Device
	generation uint64
	once       sync.Once
}

// NewOutputDevice creates an output device service; nothing is opened yet
func NewOutputDevice(open Opener) *OutputDevice {
	return &OutputDevice{
		open:   open,
		logger: slog.Default().With("output device uuid", uuid.New()),
	}
}

// Acquire takes a reference, opening the device if none was held
func (o *OutputDevice) Acquire() (*DeviceRef, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.refs == 0 {
		dev, err := o.open()
		if err != nil {
			return nil, deviceError("open device", err)
		}
		primary, err := dev.Primary()
		if err != nil {
			if cerr := dev.Close(); cerr != nil {
				o.logger.Warn("Closing device after failed primary", "error", cerr)
			}
			return nil, deviceError("create primary buffer", err)
		}
		o.dev = dev
		o.primary = primary
		o.generation++
		o.logger.Info("Output device opened", "generation", o.generation)
	}

	o.refs++
	return &DeviceRef{out: o, dev: o.dev, generation: o.generation}, nil
}

// Release drops the reference; later calls are no-ops
func (r *DeviceRef) Release() error {
	var err error
	r.once.Do(func() {
		err = r.out.release()
	})
	return err
}

// Device returns the device the reference was taken on
func (r *DeviceRef) Device() device.Device {
	return r.dev
}

// Generation identifies which opening of the device the reference belongs to
func (r *DeviceRef) Generation() uint64 {
	return r.generation
}

func (o *OutputDevice) release() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.refs == 0 {
		return fmt.Errorf("%w: release without reference", ErrBug)
	}
	o.refs--
	if o.refs > 0 {
		return nil
	}

	var errs []error
	if err := o.primary.Release(); err != nil {
		errs = append(errs, deviceError("release primary buffer", err))
	}
	if err := o.dev.Close(); err != nil {
		errs = append(errs, deviceError("close device", err))
	}
	o.primary = nil
	o.dev = nil
	o.logger.Info("Output device closed", "generation", o.generation)
	return errors.Join(errs...)
}

// Refs returns the number of live references
func (o *OutputDevice) Refs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refs
}

// Generation returns how many times the device has been opened
func (o *OutputDevice) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation
}

// Startup takes the process-level reservation that keeps the device and
// its primary buffer open between buffers
func (o *OutputDevice) Startup() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.reserved != nil {
		return nil
	}
	ref, err := o.Acquire()
	if err != nil {
		return err
	}
	o.reserved = ref
	return nil
}

// Shutdown releases the reservation taken by Startup
func (o *OutputDevice) Shutdown() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.reserved == nil {
		return nil
	}
	ref := o.reserved
	o.reserved = nil
	return ref.Release()
}

func (o *OutputDevice) activePrimary() (device.Primary, error) {
	if o.refs == 0 {
		return nil, ErrDeviceInactive
	}
	return o.primary, nil
}

// Format returns the device-wide output format
func (o *OutputDevice) Format() (audio.Format, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.activePrimary()
	if err != nil {
		return audio.Format{}, err
	}
	f, err := p.Format()
	if err != nil {
		return audio.Format{}, deviceError("get primary format", err)
	}
	return f, nil
}

// SetFormat changes the device-wide output format
func (o *OutputDevice) SetFormat(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRange, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.activePrimary()
	if err != nil {
		return err
	}
	return paramError("set primary format", p.SetFormat(format))
}

// Volume returns the master volume in hundredths of a decibel
func (o *OutputDevice) Volume() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.activePrimary()
	if err != nil {
		return 0, err
	}
	v, err := p.Volume()
	if err != nil {
		return 0, deviceError("get primary volume", err)
	}
	return v, nil
}

// SetVolume sets the master volume in hundredths of a decibel
func (o *OutputDevice) SetVolume(volume int) error {
	if volume < device.VolumeMin || volume > device.VolumeMax {
		return rangeError("volume %d outside [%d, %d]", volume, device.VolumeMin, device.VolumeMax)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.activePrimary()
	if err != nil {
		return err
	}
	return paramError("set primary volume", p.SetVolume(volume))
}
