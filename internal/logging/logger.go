package logging

import (
	"log/slog"
	"os"
)

// Setup installs the global slog logger: JSON to stdout plus any extra sinks.
func Setup(debug bool, sinks ...slog.Handler) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if len(sinks) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, sinks...)...)
	}
	slog.SetDefault(slog.New(handler))
}
