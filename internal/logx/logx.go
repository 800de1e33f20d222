//go:generate mockgen -source=logx.go -destination=logx_mock.go -package=logx

// Package logx wraps zerolog behind a small interface so call sites never
// import zerolog directly, matching the teacher's internal/config/logger
// facade.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"

	ConsoleFormat = "console"
	JSONFormat    = "json"

	TimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Logger is the facade every channel, endpoint and service depends on.
type Logger interface {
	Debug() Event
	Info() Event
	Warn() Event
	Error() Event
}

// Event is a single structured log record under construction.
type Event interface {
	Msg(msg string)
	Msgf(format string, v ...interface{})
	Str(key, value string) Event
	Int(key string, value int) Event
	Uint32(key string, value uint32) Event
	Dur(key string, value time.Duration) Event
	Err(err error) Event
}

type zlEvent struct{ e *zerolog.Event }

func (z *zlEvent) Msg(msg string)                            { z.e.Msg(msg) }
func (z *zlEvent) Msgf(format string, v ...interface{})      { z.e.Msgf(format, v...) }
func (z *zlEvent) Str(key, value string) Event               { return &zlEvent{z.e.Str(key, value)} }
func (z *zlEvent) Int(key string, value int) Event           { return &zlEvent{z.e.Int(key, value)} }
func (z *zlEvent) Uint32(key string, value uint32) Event     { return &zlEvent{z.e.Uint32(key, value)} }
func (z *zlEvent) Dur(key string, value time.Duration) Event { return &zlEvent{z.e.Dur(key, value)} }
func (z *zlEvent) Err(err error) Event                       { return &zlEvent{z.e.Err(err)} }

// noop is returned for nil-safe default loggers (e.g. unconfigured endpoints
// in unit tests).
type noop struct{}

func (noop) Msg(string)                      {}
func (noop) Msgf(string, ...interface{})     {}
func (n noop) Str(string, string) Event      { return n }
func (n noop) Int(string, int) Event         { return n }
func (n noop) Uint32(string, uint32) Event   { return n }
func (n noop) Dur(string, time.Duration) Event { return n }
func (n noop) Err(error) Event                { return n }

type zlLogger struct{ l zerolog.Logger }

func (z *zlLogger) Debug() Event { return &zlEvent{z.l.Debug()} }
func (z *zlLogger) Info() Event  { return &zlEvent{z.l.Info()} }
func (z *zlLogger) Warn() Event  { return &zlEvent{z.l.Warn()} }
func (z *zlLogger) Error() Event { return &zlEvent{z.l.Error()} }

// noopLogger discards everything; used when callers don't care to configure
// logging (e.g. library defaults, tests).
type noopLogger struct{}

func (noopLogger) Debug() Event { return noop{} }
func (noopLogger) Info() Event  { return noop{} }
func (noopLogger) Warn() Event  { return noop{} }
func (noopLogger) Error() Event { return noop{} }

// NoOp returns a Logger that discards everything.
func NoOp() Logger { return noopLogger{} }

// Options configures New.
type Options struct {
	Level  string
	Format string
	Out    io.Writer // overrides the format-derived writer, mainly for tests
}

// New builds a zerolog-backed Logger from Options, applying the teacher's
// console-vs-json selection and RFC3339-ish timestamp format.
func New(opts Options) Logger {
	if opts.Level == "" {
		opts.Level = InfoLevel
	}
	if opts.Format == "" {
		opts.Format = ConsoleFormat
	}

	var out io.Writer = os.Stdout
	if opts.Out != nil {
		out = opts.Out
	} else if opts.Format == ConsoleFormat {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: TimeFormat}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	l := zerolog.New(out).Level(level(opts.Level)).With().Timestamp().Logger()
	return &zlLogger{l: l}
}

func level(s string) zerolog.Level {
	switch s {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
