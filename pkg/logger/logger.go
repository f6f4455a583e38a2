// Package logger adapts slog to the logging interfaces of third-party libraries.
package logger

import (
	"log"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Std returns a stdlib logger that writes through l at error level, tagged
// with component. Useful for http.Server.ErrorLog.
func Std(l *slog.Logger, component string) *log.Logger {
	if l == nil {
		l = slog.Default()
	}
	return slog.NewLogLogger(l.With("component", component).Handler(), slog.LevelError)
}

// Cron returns a cron.Logger backed by l. Cron's chatty info messages are
// logged at debug level.
func Cron(l *slog.Logger) cron.Logger {
	if l == nil {
		l = slog.Default()
	}
	return cronLogger{l: l}
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
