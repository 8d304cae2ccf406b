package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

// LevelTrace sits below debug and carries startup progress notices such as
// route registration.
const LevelTrace = slog.Level(-8)

// New returns a structured JSON logger using slog, writing to stdout.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config value to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace
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

// Trace logs at LevelTrace.
func Trace(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.Log(ctx, LevelTrace, msg, args...)
}

// stackTracer is implemented by errors that captured the stack where they
// were raised (for example a recovered panic).
type stackTracer interface {
	StackTrace() []byte
}

// Traceback logs err at error level together with a stack. The stack is
// taken from the error chain when available, otherwise from the caller.
func Traceback(ctx context.Context, l *slog.Logger, msg string, err error, args ...any) {
	var st stackTracer
	var stack []byte
	if errors.As(err, &st) && len(st.StackTrace()) > 0 {
		stack = st.StackTrace()
	} else {
		stack = debug.Stack()
	}
	args = append(args, "error", err, "stack", string(stack))
	l.ErrorContext(ctx, msg, args...)
}
