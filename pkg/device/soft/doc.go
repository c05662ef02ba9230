// ABOUTME: In-memory software output device
// ABOUTME: Implements the device contract with cursors driven by an output backend
// Package soft implements device.Device in memory.
//
// Buffers hold their samples in Go slices and keep a play cursor that moves
// only when the device is clocked. An audio backend clocks it by reading
// mixed 16-bit PCM through Device.Read; tests clock a single buffer with
// Buffer.Advance. Crossing a registered offset signals its event, and
// stopping (explicitly or at the end of a non-looping buffer) signals the
// events registered at device.OffsetStop.
//
// Duplicated buffers share sample memory but keep independent cursors,
// status and notifications.
//
// Example:
//
//	dev := soft.New(soft.Config{})
//	player := otoCtx.NewPlayer(dev) // the backend pulls and clocks the device
package soft
