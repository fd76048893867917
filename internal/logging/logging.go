package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the JSON logger used by every binary. When filePath is set, records are also
// written to a size-rotated file next to stdout.
func New(level slog.Level, filePath string) (*slog.Logger, io.Closer) {
	var writer io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if trimmed := strings.TrimSpace(filePath); trimmed != "" {
		_ = os.MkdirAll(filepath.Dir(trimmed), 0o755)
		rotating := &lumberjack.Logger{
			Filename:   trimmed,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
