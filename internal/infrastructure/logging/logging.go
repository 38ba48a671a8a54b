package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 3
)

// Init installs the process-wide slog default. Output always goes to stdout;
// when file is set it is duplicated into a size-rotated log file and the
// returned writer must be closed on shutdown.
func Init(level, file string) (*RotatingWriter, error) {
	parsed := parseLevel(level)
	writers := []io.Writer{os.Stdout}

	var rotating *RotatingWriter
	if strings.TrimSpace(file) != "" {
		writer, err := NewRotatingWriter(file, defaultMaxSizeMB, defaultMaxBackups)
		if err != nil {
			return nil, err
		}
		rotating = writer
		writers = append(writers, writer)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: parsed})
	slog.SetDefault(slog.New(handler))

	// Route the legacy log package through the same handler.
	stdLogger := slog.NewLogLogger(handler, parsed)
	log.SetFlags(0)
	log.SetOutput(stdLogger.Writer())

	return rotating, nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
