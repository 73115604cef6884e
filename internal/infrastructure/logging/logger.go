package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
)

// ServiceName is the service attribute on every log entry.
const ServiceName = "telegramd"

// Logger is a slog.Logger with the service attributes attached. It is safe
// for concurrent use.
type Logger struct {
	*slog.Logger
}

// New returns a logger writing to the stream named by cfg.Output.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, stream(cfg.Output))
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	h := handler(cfg.Format, w, &slog.HandlerOptions{Level: levelOf(cfg.Level)})
	return &Logger{Logger: slog.New(h.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	}))}
}

func stream(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// handler picks text for "text" and JSON for anything else.
func handler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// levelOf parses a level name, accepting "warning" for warn. Unknown names
// log at info.
func levelOf(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// With returns a child logger carrying args on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a logger tagged with component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the JSON info logger used before config.yaml is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}
