package ingest

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a structured logger for an ingestion pass. When logPath
// is empty, logs go to stderr; otherwise they're written to a rotating
// file capped at 10MB with 3 backups.
func NewLogger(logPath string) *slog.Logger {
	var w io.Writer
	if logPath == "" {
		return slog.Default()
	}
	w = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}
