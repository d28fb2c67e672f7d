// Package logging wires log/slog for the whole service.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu       sync.RWMutex
	root     = slog.New(slog.NewTextHandler(os.Stderr, nil))
	levelVar = new(slog.LevelVar)
)

// Setup replaces the root logger. format is "json" or "text".
func Setup(w io.Writer, format, level string) *slog.Logger {
	levelVar.Set(ParseLevel(level))
	opts := &slog.HandlerOptions{Level: levelVar}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	mu.Lock()
	root = slog.New(h)
	mu.Unlock()
	slog.SetDefault(root)
	return root
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Module returns a logger tagged with the component name.
func Module(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With("module", name)
}

// Discard is used by tests that do not care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
