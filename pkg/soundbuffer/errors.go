// ABOUTME: Error taxonomy for sound buffers
// ABOUTME: Range, invalid-operation, device and internal-consistency errors
package soundbuffer

import (
	"errors"
	"fmt"

	"github.com/Sendspin/soundbuffer-go/pkg/device"
)

var (
	// ErrRange marks an offset, size or format outside its valid bounds
	ErrRange = errors.New("out of range")

	// ErrInvalidOperation marks a call the buffer cannot honor in its current state
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDevice marks a failed device call; see DeviceError for the code
	ErrDevice = errors.New("device error")

	// ErrBug marks an internally inconsistent state
	ErrBug = errors.New("internal inconsistency")
)

var (
	ErrDisposed           = fmt.Errorf("%w: disposed", ErrInvalidOperation)
	ErrAlreadyInitialized = fmt.Errorf("%w: already initialized", ErrInvalidOperation)
	ErrNowPlaying         = fmt.Errorf("%w: now playing", ErrInvalidOperation)
	ErrWaitInProgress     = fmt.Errorf("%w: wait already in progress", ErrInvalidOperation)
	ErrEffectsUnsupported = fmt.Errorf("%w: effects not enabled for this buffer", ErrInvalidOperation)
	ErrDeviceInactive     = fmt.Errorf("%w: output device not active", ErrInvalidOperation)
)

// DeviceError wraps a failed device call
type DeviceError struct {
	Op   string
	Code device.Code
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrDevice and the underlying device error
func (e *DeviceError) Unwrap() []error {
	return []error{ErrDevice, e.Err}
}

func deviceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Op: op, Code: device.CodeOf(err), Err: err}
}

// paramError maps an invalid-parameter device failure to ErrRange, keeping
// other codes as device errors
func paramError(op string, err error) error {
	if err == nil {
		return nil
	}
	if device.CodeOf(err) == device.CodeInvalidParam {
		return fmt.Errorf("%s: %w: %v", op, ErrRange, err)
	}
	return deviceError(op, err)
}

func rangeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRange, fmt.Sprintf(format, args...))
}
