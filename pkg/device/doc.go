// ABOUTME: Output device contract package
// ABOUTME: Declares the hardware buffer interfaces, status codes and trigger events
// Package device describes the output hardware a sound buffer plays through.
//
// A Device hands out circular Buffers. Writing into a Buffer is done with a
// Lock/Unlock pair: the device returns up to two regions, the second one
// starting at byte 0 when the locked range wraps past the end. Buffers
// signal Events when the play cursor crosses a registered offset, and
// WaitAny blocks on a set of Events the way a multi-object wait does.
//
// The soft subpackage provides an in-memory implementation driven by an
// audio output backend.
//
// Example:
//
//	buf, err := dev.CreateBuffer(device.BufferDesc{Format: format, Bytes: 4096})
//	a, b, err := buf.Lock(0, len(pcm), 0)
//	n := copy(a, pcm)
//	n += copy(b, pcm[n:])
//	err = buf.Unlock(a, b)
package device
