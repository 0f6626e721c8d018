//
// Copyright (c) 2019, 2020 Oracle and/or its affiliates.  All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

// Package logger provides logging functionality.
package logger

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines a set of logging levels that used to control logging output.
//
// The logging levels are ordered. The available levels in ascending order are:
//
//	Fine
//	Trace
//	Debug
//	Info
//	Warn
//	Error
//
// Enabling logging at a given level also enables logging at all higher levels.
// For example, if desired logging level for the logger is set to Debug, the
// messages of Debug level, as well as Info, Warn and Error levels are all logged.
//
// In addition there is a level Off that can be used to turn off logging.
type LogLevel int

const (
	// Fine represents a level used to log tracing messages.
	Fine LogLevel = 10

	// Trace represents a level used to log query execution trace messages,
	// between Fine and Debug in verbosity.
	Trace LogLevel = 15

	// Debug represents a level used to log debug messages.
	Debug LogLevel = 20

	// Info represents a level used to log informative messages.
	Info LogLevel = 30

	// Warn represents a level used to log warning messages.
	Warn LogLevel = 40

	// Error represents a level used to log error messages.
	Error LogLevel = 50

	// Off turns off logging.
	Off LogLevel = 99
)

// String returns a string representation for the log level.
func (level LogLevel) String() string {
	switch level {
	case Fine:
		return "Fine"
	case Trace:
		return "Trace"
	case Debug:
		return "Debug"
	case Info:
		return "Info"
	case Warn:
		return "Warn"
	case Error:
		return "Error"
	case Off:
		return "Off"
	default:
		return "N/A"
	}
}

// zapLevel maps a LogLevel onto the nearest zapcore.Level. Fine has no zap
// equivalent so it is folded into Debug; the level filtering that matters
// for callers is still done by this package, not by zap's own level check.
func zapLevel(level LogLevel) zapcore.Level {
	switch {
	case level <= Trace:
		return zapcore.DebugLevel
	case level <= Debug:
		return zapcore.DebugLevel
	case level <= Info:
		return zapcore.InfoLevel
	case level <= Warn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Logger represents a logging object that wraps a zap.SugaredLogger, adding
// the level vocabulary (Fine/Debug/Info/Warn/Error) used throughout this
// driver and a minimum-level gate so disabled levels never touch zap's
// sprintf formatting path.
type Logger struct {
	sugar *zap.SugaredLogger
	level LogLevel
}

// New creates a logger that writes messages of the specified logging level to
// the specified io.Writer. If useLocalTime is set to false, the log entry
// displays UTC time.
//
// If the specified level is Off or not a recognized value, New returns nil,
// which represents logging being disabled.
func New(out io.Writer, level LogLevel, useLocalTime bool) *Logger {
	if out == nil {
		return nil
	}

	switch level {
	case Fine, Trace, Debug, Info, Warn, Error:
	default:
		return nil
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if !useLocalTime {
		encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			zapcore.ISO8601TimeEncoder(t.UTC(), enc)
		}
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(zapLevel(level)))
	zl := zap.New(core)

	return &Logger{
		sugar: zl.Sugar(),
		level: level,
	}
}

// Fine writes the specified message to the logger if the desired logging level is set to Fine.
func (l *Logger) Fine(messageFormat string, messageArgs ...interface{}) {
	l.Log(Fine, messageFormat, messageArgs...)
}

// Trace writes the specified message to the logger if the desired logging
// level is set to Trace or a value lower than Trace such as Fine.
func (l *Logger) Trace(messageFormat string, messageArgs ...interface{}) {
	l.Log(Trace, messageFormat, messageArgs...)
}

// Debug writes the specified message to the logger if the desired logging level
// is set to Debug or a value lower than Debug such as Fine.
func (l *Logger) Debug(messageFormat string, messageArgs ...interface{}) {
	l.Log(Debug, messageFormat, messageArgs...)
}

// Info writes the specified message to the logger if the desired logging level
// is set to Info or a value lower than Info such as Debug or Fine.
func (l *Logger) Info(messageFormat string, messageArgs ...interface{}) {
	l.Log(Info, messageFormat, messageArgs...)
}

// Warn writes the specified message to the logger if the desired logging level
// is set to Warn or a value lower than Warn such as Info, Debug or Fine.
func (l *Logger) Warn(messageFormat string, messageArgs ...interface{}) {
	l.Log(Warn, messageFormat, messageArgs...)
}

// Error writes the specified message to the logger if the desired logging level
// is set to Error or a value lower than Error such as Warn, Info, Debug or Fine.
func (l *Logger) Error(messageFormat string, messageArgs ...interface{}) {
	l.Log(Error, messageFormat, messageArgs...)
}

// Log writes the specified message to logger if the specified logging level is
// the same as or higher than logger's desired level.
func (l *Logger) Log(level LogLevel, messageFormat string, messageArgs ...interface{}) {
	if l == nil || level == Off || l.level > level {
		return
	}

	l.sugar.Infof(label(level)+messageFormat, messageArgs...)
}

// LogWithFn calls the function fn if the specified logging level is the same as
// or higher than logger's desired level, writes the message returned from fn to
// the logger. Use this for messages whose formatting is itself expensive.
func (l *Logger) LogWithFn(level LogLevel, fn func() string) {
	if l == nil || level == Off || l.level > level {
		return
	}

	l.sugar.Info(label(level) + fn())
}

// Sync flushes any buffered log entries. Callers should invoke this before
// process exit.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}

// label returns a label for the specified logging level used to display in log entry.
func label(level LogLevel) string {
	switch level {
	case Fine:
		return "[FINE]  "
	case Trace:
		return "[TRACE] "
	case Debug:
		return "[DEBUG] "
	case Info:
		return "[INFO]  "
	case Warn:
		return "[WARN]  "
	case Error:
		return "[ERROR] "
	default:
		return ""
	}
}

// DefaultLogger represents a default logger that writes warning and higher priority events to stderr.
var DefaultLogger *Logger = New(os.Stderr, Warn, false)
