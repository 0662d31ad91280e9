package logging

import (
	"log/slog"
	"os"
)

// Setup builds the process-wide logger and installs it as slog's default.
// Output is JSON on stderr so stdout stays free for command output.
func Setup(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
