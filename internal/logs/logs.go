// Package logs is the leveled logging facade shared by every onebyte package.
//
// Call sites log through package-level helpers (Infof, Errf, ...). The
// backing zerolog logger is swapped atomically by Configure, so helpers are
// safe to call from any goroutine before or after configuration.
package logs

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	TraceLevel = zerolog.TraceLevel
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Config controls output format and verbosity.
type Config struct {
	Level     Level
	Timestamp bool
	NoColor   bool
	// Bypass writes raw JSON lines instead of the console format.
	Bypass bool
	Out    io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Timestamp: true,
		Out:       os.Stderr,
	}
}

var current atomic.Pointer[zerolog.Logger]

func init() {
	Configure(DefaultConfig())
}

// Configure replaces the active logger.
func Configure(cfg Config) {
	l := build(cfg)
	current.Store(&l)
}

// SetLevel adjusts the verbosity of the active logger without rebuilding it.
func SetLevel(lvl Level) {
	l := current.Load().Level(lvl)
	current.Store(&l)
}

// Logger returns the active zerolog logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.Bypass {
		cw := zerolog.ConsoleWriter{
			Out:     out,
			NoColor: cfg.NoColor,
		}
		if cfg.Timestamp {
			cw.TimeFormat = time.RFC3339
		} else {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger().Level(cfg.Level)
}

func Tracef(format string, args ...any) { emit(TraceLevel, format, args) }
func Debugf(format string, args ...any) { emit(DebugLevel, format, args) }
func Infof(format string, args ...any)  { emit(InfoLevel, format, args) }
func Warnf(format string, args ...any)  { emit(WarnLevel, format, args) }
func Errf(format string, args ...any)   { emit(ErrorLevel, format, args) }

func emit(lvl Level, format string, args []any) {
	l := current.Load()
	ev := l.WithLevel(lvl)
	if ev == nil {
		return
	}
	ev.Msg(fmt.Sprintf(format, args...))
}
