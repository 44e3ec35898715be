package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter pairs the process logger with the optional categorized logs.
// Without a MultiLogger the category methods are no-ops.
type LoggerAdapter struct {
	base  *zap.Logger
	multi *MultiLogger
}

// NewLoggerAdapter creates an adapter; multi may be nil
func NewLoggerAdapter(base *zap.Logger, multi *MultiLogger) *LoggerAdapter {
	if base == nil {
		base = zap.NewNop()
	}
	return &LoggerAdapter{base: base, multi: multi}
}

// Base returns the process logger
func (la *LoggerAdapter) Base() *zap.Logger {
	return la.base
}

// LogAccess records an HTTP request in the web_access category
func (la *LoggerAdapter) LogAccess(msg string, fields ...zap.Field) {
	if la.multi != nil {
		la.multi.WebAccess().Info(msg, fields...)
	}
}

// LogAppError records an application error in the error category
func (la *LoggerAdapter) LogAppError(msg string, fields ...zap.Field) {
	if la.multi != nil {
		la.multi.LogAppError(msg, fields...)
	}
}
