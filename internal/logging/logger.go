package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the root logger's format and level.
type Config struct {
	Format string
	Level  string
	Output io.Writer
}

// New builds the root logger. The json format writes one JSON object per
// record; the console format renders the same records through zerolog's
// human-readable console writer.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatJSON:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), nil
	case FormatConsole:
		return slog.New(slog.NewJSONHandler(newConsoleWriter(out), &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: zerologKeys,
		})), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
}

// ParseLevel maps debug, info, warn and error onto slog levels. An empty
// string means info.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", raw)
	}
}

func newConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat, NoColor: !isTerminal(w)}
}

// zerologKeys renames slog's built-in keys to the field names the console
// writer expects.
func zerologKeys(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.MessageKey:
		attr.Key = zerolog.MessageFieldName
	case slog.LevelKey:
		attr.Key = zerolog.LevelFieldName
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.TimeKey:
		attr.Key = zerolog.TimestampFieldName
	}
	return attr
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
