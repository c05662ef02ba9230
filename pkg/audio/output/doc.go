// ABOUTME: Audio output package for playing the software device mix
// ABOUTME: Provides the Output interface with oto, malgo and null backends
// Package output drives speakers from the software device.
//
// Every backend pulls signed 16-bit little-endian PCM from an io.Reader,
// normally a soft.Device, so the device mix and its buffer cursors advance
// at the hardware rate. The null backend does the same on a ticker for
// headless runs.
//
// Example:
//
//	out := soundbuffer.NewOutputDevice(func() (device.Device, error) {
//	    return output.OpenDevice("oto", soft.Config{})
//	})
package output
