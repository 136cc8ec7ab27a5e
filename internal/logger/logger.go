// Package logger holds the module-wide structured logger. Output is
// discarded by default so library users pay nothing; binaries opt in via
// Init.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the module logger. It discards all output until Init enables it.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures logger initialization.
type Options struct {
	Enabled bool       // if false, all logging is discarded
	Output  io.Writer  // destination; default os.Stderr
	Level   slog.Level // minimum level; default LevelInfo
}

// Init configures logging. Call from main() before any log calls.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level}))
}
