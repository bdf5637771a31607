package telemetry

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// InitSlog sets the default slog logger, logs go to stderr and, when logFile
// is not empty, also into a size-rotated file. The returned closer closes
// the file.
func InitSlog(verbose bool, logFile string) io.Closer {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
		}
		out = io.MultiWriter(os.Stderr, rotated)
		closer = rotated
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
