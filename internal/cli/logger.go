package cli

import (
	"io"
	"log/slog"
)

// NewLogger returns a factory for JSON loggers writing to w. Commands print
// their results on stdout, so w should be stderr.
func NewLogger(w io.Writer) LoggerFactory {
	return func(level string) *slog.Logger {
		var logLevel slog.Level
		switch level {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: logLevel}
		handler := slog.NewJSONHandler(w, opts)
		return slog.New(handler)
	}
}
