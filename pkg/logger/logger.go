package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures the process-wide slog default.
// levelStr: "debug", "info", "warn", "error".
// logPath: optional log file; when set, output goes to both the console
// and the file via a MultiWriter, with colors disabled so the file stays
// readable.
func Setup(levelStr string, logPath string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer = os.Stdout
	noColor := false

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return err
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		writer = io.MultiWriter(os.Stdout, file)
		noColor = true
	}

	handler := tint.NewHandler(writer, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
		AddSource:  level == slog.LevelDebug,
	})

	slog.SetDefault(slog.New(handler))
	return nil
}
