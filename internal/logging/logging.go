// ABOUTME: Default slog logger setup
// ABOUTME: Parses level names and routes output to stderr text or a JSON log file
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownLevel is returned for level names other than none/error/warn/info/debug
var ErrUnknownLevel = errors.New("unexpected log level")

// ParseLevel maps a level name to a slog level. "none" reports ok=false.
func ParseLevel(name string) (level slog.Level, ok bool, err error) {
	switch strings.ToLower(name) {
	case "none":
		return 0, false, nil
	case "error":
		return slog.LevelError, true, nil
	case "warn":
		return slog.LevelWarn, true, nil
	case "info", "":
		return slog.LevelInfo, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// Configure installs the default logger. With a file the output is JSON
// and the returned file must be closed by the caller; without one it is
// text on stderr.
func Configure(level, file string) (*os.File, error) {
	lvl, enabled, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if file == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
	return f, nil
}
