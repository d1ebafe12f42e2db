package logging

import (
	"context"
	"log/slog"
)

const truncatedSuffix = "..."

type SlogLogger struct {
	l      *slog.Logger
	maxLen int
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// WithMaxMessageLength caps the message length; longer messages are cut and
// suffixed with "...". Zero disables truncation.
func (s *SlogLogger) WithMaxMessageLength(n int) *SlogLogger {
	return &SlogLogger{l: s.l, maxLen: n}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, s.truncate(msg), s.withRequest(ctx, args)...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, s.truncate(msg), s.withRequest(ctx, args)...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, s.truncate(msg), s.withRequest(ctx, args)...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, s.truncate(msg), s.withRequest(ctx, args)...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...), maxLen: s.maxLen}
}

func (s *SlogLogger) truncate(msg string) string {
	if s.maxLen <= 0 || len(msg) <= s.maxLen {
		return msg
	}
	return msg[:s.maxLen] + truncatedSuffix
}

func (s *SlogLogger) withRequest(ctx context.Context, args []any) []any {
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		return args
	}
	return append(args, "request_id", id)
}

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func ParseLevel(name string) slog.Level {
	switch name {
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
