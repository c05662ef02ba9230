// ABOUTME: Remote control CLI for a running soundbuffer player
// ABOUTME: Finds the player by address or mDNS, sends one command or watches events
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sendspin/soundbuffer-go/internal/discovery"
	"github.com/Sendspin/soundbuffer-go/internal/logging"
	"github.com/Sendspin/soundbuffer-go/internal/remote"
)

var (
	addr     = flag.String("addr", "", "Player address host:port (default: find over mDNS)")
	name     = flag.String("name", "", "Player name to look for over mDNS")
	timeout  = flag.Duration("timeout", 5*time.Second, "Discovery and reply timeout")
	logLevel = flag.String("log-level", "warn", "Log level: none, error, warn, info, debug")
)

const usage = `Usage: %s [flags] COMMAND [ARG]

Commands:
  play | pause | stop | repeat | status
  seek FRAME
  volume HUNDREDTHS_DB
  loop on|off
  watch            print events until interrupted
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if _, err := logging.Configure(*logLevel, ""); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	watch := args[0] == "watch"
	var cmd remote.Command
	if !watch {
		var err error
		if cmd, err = parseCommand(args); err != nil {
			return err
		}
	}

	target, err := resolve(ctx)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	c, err := remote.Dial(dialCtx, target, "sb-remote")
	if err != nil {
		return err
	}
	defer c.Close()

	if watch {
		fmt.Printf("watching %s (%s)\n", c.Hello().Name, target)
		for {
			select {
			case ev, ok := <-c.Events():
				if !ok {
					return nil
				}
				printJSON(ev)
			case <-ctx.Done():
				return nil
			}
		}
	}

	sendCtx, cancelSend := context.WithTimeout(ctx, *timeout)
	defer cancelSend()
	st, err := c.Send(sendCtx, cmd)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func resolve(ctx context.Context) (string, error) {
	if *addr != "" {
		return *addr, nil
	}
	player, err := discovery.Lookup(ctx, *name, *timeout)
	if err != nil {
		return "", fmt.Errorf("no -addr given and mDNS lookup failed: %w", err)
	}
	return player.Addr(), nil
}

// parseCommand turns CLI arguments into a remote command
func parseCommand(args []string) (remote.Command, error) {
	action := strings.ToLower(args[0])
	rest := args[1:]

	switch action {
	case remote.ActionPlay, remote.ActionPause, remote.ActionStop, remote.ActionRepeat, remote.ActionStatus:
		if len(rest) != 0 {
			return remote.Command{}, fmt.Errorf("%s takes no argument", action)
		}
		return remote.Command{Action: action}, nil

	case remote.ActionSeek, remote.ActionVolume:
		if len(rest) != 1 {
			return remote.Command{}, fmt.Errorf("%s takes one number", action)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return remote.Command{}, fmt.Errorf("bad %s value %q: %w", action, rest[0], err)
		}
		return remote.Command{Action: action, Value: n}, nil

	case remote.ActionLoop:
		if len(rest) != 1 {
			return remote.Command{}, fmt.Errorf("loop takes on or off")
		}
		switch strings.ToLower(rest[0]) {
		case "on", "true", "1":
			return remote.Command{Action: action, Enabled: true}, nil
		case "off", "false", "0":
			return remote.Command{Action: action}, nil
		}
		return remote.Command{}, fmt.Errorf("loop takes on or off, got %q", rest[0])

	default:
		return remote.Command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
