// Package logger provides leveled logging for sercha-rag.
// Errors are always written. When verbose mode is enabled via the --verbose
// flag, debug, info and warning messages are written too, so users can follow
// the retrieval and answer pipeline.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	output = zapcore.Lock(zapcore.AddSync(os.Stderr))
	base   *zap.Logger
	sugar  *zap.SugaredLogger
)

func init() {
	rebuild()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		NameKey:          "logger",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// rebuild must be called with mu held for writing, or from init.
func rebuild() {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), output, level)
	base = zap.New(core)
	sugar = base.Sugar()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	if v {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.ErrorLevel)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = zapcore.Lock(zapcore.AddSync(w))
	rebuild()
}

// L returns the underlying structured logger for callers that attach fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	s().Debugf(format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	s().Debugf("=== %s ===", name)
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	s().Infof(format, args...)
}

// Warn logs a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	s().Warnf(format, args...)
}

// Error logs an error message. Errors are written regardless of verbosity.
func Error(format string, args ...any) {
	s().Errorf(format, args...)
}

// Sync flushes buffered output.
func Sync() {
	_ = L().Sync()
}
