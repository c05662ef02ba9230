// ABOUTME: Sound buffer core package
// ABOUTME: Circular PCM buffers over a shared, reference-counted output device
// Package soundbuffer plays circular PCM buffers through a shared device.
//
// An OutputDevice opens the underlying device when the first Buffer takes
// a reference and closes it when the last one is disposed. Each Buffer
// wraps one device buffer and adds:
//
//   - wrap-aware writes with Write and WithWrap
//   - a Stopped/Playing/PlayingLooping/Paused state machine
//   - user markers reported by Wait
//   - an interior loop between LoopStart and LoopEnd, repeated LoopCount
//     times (0 is forever) while a Wait or a Looper is running
//
// Example:
//
//	out := soundbuffer.NewOutputDevice(opener)
//	buf, err := soundbuffer.New(out, soundbuffer.Config{Data: pcm, Channels: 2})
//	if err != nil {
//	    return err
//	}
//	defer buf.Dispose()
//
//	buf.SetNotify(48000)
//	buf.Play()
//	res, err := buf.Wait(ctx, soundbuffer.Infinite)
package soundbuffer
