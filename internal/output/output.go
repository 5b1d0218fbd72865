// Package output renders crawl results as indented JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// FallbackPath is written when the requested output file cannot be created.
const FallbackPath = "result.json"

type Writer struct {
	path     string
	fallback string
	stdout   io.Writer
	logger   *slog.Logger
}

// New returns a Writer for path. An empty path writes to stdout.
func New(path string, stdout io.Writer, logger *slog.Logger) *Writer {
	return &Writer{
		path:     path,
		fallback: FallbackPath,
		stdout:   stdout,
		logger:   logger,
	}
}

// Write encodes v and returns where it went: the requested file, the
// fallback file, or "-" for stdout.
func (w *Writer) Write(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if w.path == "" {
		if _, err := w.stdout.Write(data); err != nil {
			return "", fmt.Errorf("write stdout: %w", err)
		}
		return "-", nil
	}

	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		w.logger.Warn("cannot write output file, using fallback",
			"path", w.path,
			"fallback", w.fallback,
			"error", err,
		)
		if err := os.WriteFile(w.fallback, data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", w.fallback, err)
		}
		return w.fallback, nil
	}
	return w.path, nil
}
