package obs

import (
	"context"
	"fmt"
	"log"
	"log/slog"
)

// Level orders log severity from Debug up to Error.
type Level int8

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < Debug || l > Error {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// LevelOf maps a slog level onto the highest Level it reaches.
func LevelOf(sl slog.Level) Level {
	switch {
	case sl >= slog.LevelError:
		return Error
	case sl >= slog.LevelWarn:
		return Warn
	case sl >= slog.LevelInfo:
		return Info
	default:
		return Debug
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Warn:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger receives engine events. Implementations must be safe for
// concurrent use.
type Logger interface {
	Logf(level Level, format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Logf(Level, string, ...any) {}

// StdLogger writes "[LEVEL] component: message" lines through a
// *log.Logger, dropping anything below Min.
type StdLogger struct {
	L         *log.Logger
	Min       Level
	Component string
}

func (s StdLogger) Logf(level Level, format string, args ...any) {
	if s.L == nil || level < s.Min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if s.Component != "" {
		msg = s.Component + ": " + msg
	}
	_ = s.L.Output(2, "["+level.String()+"] "+msg)
}

// SlogLogger forwards to a structured slog.Logger. The formatted message
// becomes the record message; Attrs are attached to every record.
type SlogLogger struct {
	L     *slog.Logger
	Attrs []slog.Attr
}

func (s SlogLogger) Logf(level Level, format string, args ...any) {
	l := s.L
	if l == nil {
		l = slog.Default()
	}
	lv := level.slog()
	ctx := context.Background()
	if !l.Enabled(ctx, lv) {
		return
	}
	l.LogAttrs(ctx, lv, fmt.Sprintf(format, args...), s.Attrs...)
}
