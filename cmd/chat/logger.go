package main

import (
	"log/slog"

	"github.com/go-monolith/mono/pkg/types"
)

// slogLogger adapts *slog.Logger to types.Logger.
type slogLogger struct {
	l *slog.Logger
}

func newLogger(l *slog.Logger) types.Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) types.Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) WithModule(module string) types.Logger {
	return &slogLogger{l: s.l.With("module", module)}
}

func (s *slogLogger) WithError(err error) types.Logger {
	return &slogLogger{l: s.l.With("error", err)}
}
