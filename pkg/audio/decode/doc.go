// ABOUTME: Audio file loader package for multiple container formats
// ABOUTME: Decodes WAV, MP3, FLAC, Ogg Vorbis and raw PCM into buffer-ready PCM
// Package decode loads audio files into interleaved little-endian PCM that
// a sound buffer accepts as initial data.
//
// Supports: WAV (8/16/24/32-bit), MP3, FLAC, Ogg Vorbis, raw PCM
//
// Everything except raw PCM comes out as 16-bit samples.
// Sources with more than two channels keep the first two.
//
// Example:
//
//	pcm, err := decode.Load("intro.flac")
//	buf, err := soundbuffer.New(out, soundbuffer.Config{
//	    Data:          pcm.Data,
//	    Channels:      pcm.Format.Channels,
//	    SampleRate:    pcm.Format.SampleRate,
//	    BitsPerSample: pcm.Format.BitDepth,
//	})
package decode
