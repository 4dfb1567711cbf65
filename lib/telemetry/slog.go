package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// InitSlog installs the default logger. Verbose switches on debug records,
// which also turns on HTTP message dumps in restyutil.
func InitSlog(verbose bool) {
	InitSlogTo(os.Stderr, verbose)
}

func InitSlogTo(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
