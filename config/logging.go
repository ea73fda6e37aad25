package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the slog logger described by l. A nil w selects the
// configured output stream.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
		if l.Output == "stderr" {
			w = os.Stderr
		}
	}

	opts := &slog.HandlerOptions{Level: ParseLogLevel(l.Level)}

	var handler slog.Handler
	switch l.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if len(l.Attributes) > 0 {
		attrs := make([]slog.Attr, 0, len(l.Attributes))
		for k, v := range l.Attributes {
			attrs = append(attrs, slog.String(k, v))
		}
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler)
}

// ParseLogLevel converts string log level to slog.Level.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
