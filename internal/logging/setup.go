package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the sink and format of the process logger.
type Options struct {
	Level            string
	Format           string // "json" or "text"
	File             string // empty means stdout
	MaxMessageLength int
	MaxSizeMB        int
	MaxBackups       int
	MaxAgeDays       int
}

// New builds the process logger described by opts. The returned closer
// releases the log file, if any.
func New(opts Options) (*SlogLogger, io.Closer) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		w, closer = lj, lj
	}

	return newFromWriter(w, opts), closer
}

func newFromWriter(w io.Writer, opts Options) *SlogLogger {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if opts.Format == "text" {
		h = slog.NewTextHandler(w, hopts)
	} else {
		h = slog.NewJSONHandler(w, hopts)
	}

	return NewSlogLogger(slog.New(h)).WithMaxMessageLength(opts.MaxMessageLength)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
