// Package logger owns the process-wide slog logger. Components either take a
// *slog.Logger explicitly (services get one through app.AppContext) or fall
// back to L().
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oggyb/friender/internal/config"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config controls the handler built by New.
type Config struct {
	Level      string
	Format     Format
	Component  string
	WithSource bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

var global atomic.Pointer[slog.Logger]

// FromAppConfig translates the Log section of the app config.
func FromAppConfig(c *config.Config) Config {
	if c == nil {
		return Config{Level: "info", Format: FormatText}
	}
	return Config{
		Level:      c.Log.Level,
		Format:     Format(strings.ToLower(c.Log.Format)),
		Component:  c.Log.Component,
		WithSource: c.Log.Source,
	}
}

// InitFromConfig replaces the global logger with one built from the app config.
func InitFromConfig(c *config.Config) *slog.Logger {
	return Init(FromAppConfig(c))
}

// Init replaces the global logger and returns it. Safe for concurrent use
// with L.
func Init(c Config) *slog.Logger {
	l := New(c)
	global.Store(l)
	return l
}

// New builds a standalone logger without touching the global one.
func New(c Config) *slog.Logger {
	out := c.Output
	if out == nil {
		out = os.Stdout
	}

	l := slog.New(newHandler(out, c))
	if c.Component != "" {
		l = l.With("component", c.Component)
	}
	return l
}

func newHandler(out io.Writer, c Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.Level),
		AddSource: c.WithSource,
	}
	if c.Format == FormatJSON {
		return slog.NewJSONHandler(out, opts)
	}

	// text output is read by people, second precision is enough
	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.String(slog.TimeKey, a.Value.Time().Format(time.DateTime))
		}
		return a
	}
	return slog.NewTextHandler(out, opts)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// L returns the global logger, creating an info/text one on first use.
func L() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, New(FromAppConfig(nil)))
	return global.Load()
}

// ForComponent returns a child of the global logger whose component
// attribute is name.
func ForComponent(name string) *slog.Logger { return L().With("component", name) }

// With creates a child logger with additional attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
