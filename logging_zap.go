// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "go.uber.org/zap"

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface, for callers
// who already run a zap-based logging pipeline and want the engine's
// handshake/scheduler/cache diagnostics folded into it instead of going
// through the stdlib-backed StandardLogger.
type ZapLogger struct {
	sugared *zap.SugaredLogger
}

// NewZapLogger wraps an existing *zap.SugaredLogger. Passing nil produces a
// logger backed by zap's default production configuration.
func NewZapLogger(sugared *zap.SugaredLogger) *ZapLogger {
	if sugared == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		sugared = l.Sugar()
	}
	return &ZapLogger{sugared: sugared}
}

func fieldsToZapArgs(fields []Field) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

// Debug logs a debug-level message with structured fields.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.sugared.Debugw(msg, fieldsToZapArgs(fields)...)
}

// Info logs an info-level message with structured fields.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.sugared.Infow(msg, fieldsToZapArgs(fields)...)
}

// Warn logs a warning-level message with structured fields.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.sugared.Warnw(msg, fieldsToZapArgs(fields)...)
}

// Error logs an error-level message with structured fields.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.sugared.Errorw(msg, fieldsToZapArgs(fields)...)
}

// With returns a new ZapLogger with the given fields bound to every
// subsequent call, mirroring zap's own With semantics.
func (l *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{sugared: l.sugared.With(fieldsToZapArgs(fields)...)}
}

// Sync flushes any buffered log entries. Callers should defer Sync on
// process shutdown; the error is informational (zap itself often returns a
// non-fatal sync error on stderr/stdout).
func (l *ZapLogger) Sync() error {
	return l.sugared.Sync()
}
