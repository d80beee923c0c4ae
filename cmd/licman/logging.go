package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"licman/internal/security"

	"golang.org/x/term"
)

// parseLevel accepts debug, info, warn and error.
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// setupLogging configures slog for the CLI. Logs go to console as text on a
// terminal and as JSON otherwise. When logPath is set they are also
// appended to that file; the returned closer closes it.
func setupLogging(console io.Writer, logPath string, level slog.Level) (*slog.Logger, io.Closer, error) {
	w := console
	var file *os.File

	if logPath != "" {
		// Create log directory if needed
		if err := os.MkdirAll(filepath.Dir(logPath), security.PermDirectory); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Open log file with secure permissions
		f, err := security.OpenAppendFile(logPath, security.PermLogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		w = io.MultiWriter(console, file)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isTerminal(console) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	if file == nil {
		return slog.New(handler), nil, nil
	}
	return slog.New(handler), file, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
