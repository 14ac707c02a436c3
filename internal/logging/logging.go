// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configure Init.
type Options struct {
	// Verbose sets LevelDebug, otherwise LevelWarn (silent unless problems).
	Verbose bool
	// Format is "text" (default) or "json".
	Format string
	// Output defaults to os.Stderr if nil.
	Output io.Writer
}

// Init configures the default slog logger.
func Init(opts Options) error {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(output, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(output, handlerOpts)
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", opts.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
