package transport

import (
	"fmt"
	"log/slog"
)

// Logger interface for injecting custom loggers into transports
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// NopLogger discards everything. Transports use it when no logger is
// injected.
type NopLogger struct{}

// Printf discards the entry
func (NopLogger) Printf(string, ...any) {}

// Errorf discards the entry
func (NopLogger) Errorf(string, ...any) {}

// Debugf discards the entry
func (NopLogger) Debugf(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the Logger interface
type SlogLogger struct {
	L *slog.Logger
}

// Printf logs at info level
func (s SlogLogger) Printf(format string, v ...any) {
	s.logger().Info(fmt.Sprintf(format, v...))
}

// Errorf logs at error level
func (s SlogLogger) Errorf(format string, v ...any) {
	s.logger().Error(fmt.Sprintf(format, v...))
}

// Debugf logs at debug level
func (s SlogLogger) Debugf(format string, v ...any) {
	s.logger().Debug(fmt.Sprintf(format, v...))
}

func (s SlogLogger) logger() *slog.Logger {
	if s.L != nil {
		return s.L
	}
	return slog.Default()
}
