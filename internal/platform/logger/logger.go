package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON to stdout so collectors can
// ingest it without shaping.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
