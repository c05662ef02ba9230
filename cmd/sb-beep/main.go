// ABOUTME: Square-wave beep tool
// ABOUTME: Plays a tone through a one-shot sound buffer or writes it to a WAV file
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sendspin/soundbuffer-go/internal/logging"
	"github.com/Sendspin/soundbuffer-go/pkg/audio"
	"github.com/Sendspin/soundbuffer-go/pkg/audio/decode"
	"github.com/Sendspin/soundbuffer-go/pkg/audio/output"
	"github.com/Sendspin/soundbuffer-go/pkg/device"
	"github.com/Sendspin/soundbuffer-go/pkg/device/soft"
	"github.com/Sendspin/soundbuffer-go/pkg/soundbuffer"
)

var (
	freq     = flag.Int("freq", 440, "Tone frequency in Hz")
	duration = flag.Duration("duration", 500*time.Millisecond, "Tone length")
	rate     = flag.Int("rate", 48000, "Sample rate")
	level    = flag.Float64("level", 0.25, "Amplitude from 0 to 1")
	backend  = flag.String("backend", "oto", "Output backend: "+strings.Join(output.Backends, ", "))
	outFile  = flag.String("out", "", "Write a WAV file instead of playing")
	logLevel = flag.String("log-level", "warn", "Log level: none, error, warn, info, debug")
)

func main() {
	flag.Parse()

	if _, err := logging.Configure(*logLevel, ""); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	pcm, err := squareWave(*freq, *duration, *rate, *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *outFile != "" {
		err = writeWAV(*outFile, pcm)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err = play(ctx, *backend, pcm, *duration)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// squareWave renders a mono 16-bit tone
func squareWave(freq int, d time.Duration, rate int, level float64) (*decode.PCM, error) {
	if freq <= 0 || freq*2 > rate {
		return nil, fmt.Errorf("frequency %d must be in (0, %d]", freq, rate/2)
	}
	if level < 0 || level > 1 {
		return nil, fmt.Errorf("level %.2f outside [0, 1]", level)
	}
	format := audio.Format{Channels: 1, SampleRate: rate, BitDepth: 16}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	frames := int(d.Seconds() * float64(rate))
	if frames < 2 {
		return nil, fmt.Errorf("duration %s is too short", d)
	}

	amp := int16(level * 32767)
	half := rate / (2 * freq)
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := amp
		if (i/half)%2 == 1 {
			v = -amp
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return &decode.PCM{Format: format, Data: data}, nil
}

func writeWAV(path string, pcm *decode.PCM) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := decode.EncodeWAV(f, pcm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// play runs the tone once and waits for the end of the stream
func play(ctx context.Context, backendName string, pcm *decode.PCM, d time.Duration) error {
	out := soundbuffer.NewOutputDevice(func() (device.Device, error) {
		return output.OpenDevice(backendName, soft.Config{Format: audio.Format{
			Channels: 2, SampleRate: pcm.Format.SampleRate, BitDepth: 16,
		}})
	})

	buf, err := soundbuffer.New(out, soundbuffer.Config{
		Data:          pcm.Data,
		Channels:      pcm.Format.Channels,
		SampleRate:    pcm.Format.SampleRate,
		BitsPerSample: pcm.Format.BitDepth,
	})
	if err != nil {
		return err
	}
	defer buf.Dispose()

	if err := buf.Play(); err != nil {
		return err
	}

	res, err := buf.Wait(ctx, d+time.Second)
	if err != nil {
		return err
	}
	slog.Debug("beep finished", "result", res.String())
	if res.Kind == soundbuffer.WaitTimedOut {
		return fmt.Errorf("output did not finish within %s", d+time.Second)
	}
	return nil
}
