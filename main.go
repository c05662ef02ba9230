// ABOUTME: Entry point for the soundbuffer file player
// ABOUTME: Parses CLI flags over viper configuration and runs the player
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Sendspin/soundbuffer-go/internal/app"
	"github.com/Sendspin/soundbuffer-go/internal/config"
	"github.com/Sendspin/soundbuffer-go/internal/logging"
	"github.com/Sendspin/soundbuffer-go/internal/remote"
	"github.com/Sendspin/soundbuffer-go/internal/ui"
	"github.com/Sendspin/soundbuffer-go/internal/version"
	"github.com/Sendspin/soundbuffer-go/pkg/audio/output"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	configFile = flag.String("config", "", "Config file (default ./soundbuffer.yaml if present)")
	backend    = flag.String("backend", "", "Output backend: "+strings.Join(output.Backends, ", "))
	logLevel   = flag.String("log-level", "", "Log level: none, error, warn, info, debug")
	logFile    = flag.String("log-file", "", "Log file path (default soundbuffer.log with the TUI)")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI and exit when playback ends")
	loop       = flag.Bool("loop", false, "Loop between -loop-start and -loop-end")
	loopStart  = flag.Int("loop-start", 0, "Loop start frame")
	loopEnd    = flag.Int("loop-end", 0, "Loop end frame (0 = end of file)")
	loopCount  = flag.Int("loop-count", 0, "Loop passes (0 = endless)")
	repeat     = flag.Bool("repeat", false, "Repeat the whole file")
	volume     = flag.Int("volume", 0, "Volume in hundredths of a dB (-10000 to 0)")
	markers    = flag.String("markers", "", "Comma separated marker frames")
	remoteOn   = flag.Bool("remote", false, "Enable remote control")
	remoteAddr = flag.String("remote-addr", "", "Remote control listen address")
	mdnsOn     = flag.Bool("mdns", false, "Advertise remote control over mDNS")
	name       = flag.String("name", "", "Player name for remote control and mDNS")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

// flagKeys maps flag names onto configuration keys
var flagKeys = map[string]string{
	"backend":     "output.backend",
	"log-level":   "log.level",
	"log-file":    "log.file",
	"loop":        "player.loop",
	"loop-start":  "player.loop_start",
	"loop-end":    "player.loop_end",
	"loop-count":  "player.loop_count",
	"repeat":      "player.repeat",
	"volume":      "player.volume",
	"remote":      "remote.enabled",
	"remote-addr": "remote.addr",
	"mdns":        "mdns.enabled",
	"name":        "remote.name",
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] FILE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVer {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string) error {
	v := config.New()
	if err := config.ReadFile(v, *configFile); err != nil {
		return err
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
		if f.Name == "markers" {
			frames, err := parseMarkers(*markers)
			if err != nil {
				flagErr = err
				return
			}
			v.Set("player.markers", frames)
		}
	})
	if flagErr != nil {
		return flagErr
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}

	useTUI := !*noTUI
	logPath := cfg.Log.File
	if useTUI && logPath == "" {
		// the TUI owns the terminal
		logPath = "soundbuffer.log"
	}
	f, err := logging.Configure(cfg.Log.Level, logPath)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pc := app.FromConfig(cfg, file)
	pc.ExitOnEnd = !useTUI

	var prog *tea.Program
	var ctrl *ui.Controls
	if useTUI {
		ctrl = ui.NewControls()
		prog = ui.Run(ctrl, file)
		pc.Commands = ctrl.Commands
		pc.OnStatus = func(st remote.Status) { prog.Send(ui.StatusMsg{Status: st}) }
		pc.OnEvent = func(ev remote.Event) { prog.Send(ui.EventMsg{Event: ev}) }
		pc.OnError = func(err error) { prog.Send(ui.ErrMsg{Err: err}) }
		pc.OnListen = func(addr string) { prog.Send(ui.RemoteMsg{Addr: addr}) }
	} else {
		pc.OnListen = func(addr string) { slog.Info("remote control ready", "addr", addr) }
	}

	player, err := app.New(pc)
	if err != nil {
		return err
	}
	defer func() {
		if err := player.Close(); err != nil {
			slog.Warn("error closing player", "error", err)
		}
	}()

	if prog == nil {
		slog.Info("playing", "file", file, "backend", cfg.Output.Backend)
		return player.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-ctrl.Quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- player.Run(ctx)
		prog.Send(ui.DoneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		return fmt.Errorf("TUI failed: %w", err)
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func parseMarkers(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return []int{}, nil
	}
	var frames []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("bad marker %q: %w", field, err)
		}
		frames = append(frames, n)
	}
	return frames, nil
}
