// Package log provides the process-wide structured logger.
//
// The logger writes to stderr by default so that stdout stays free for the
// MCP stdio transport and for session output.
package log

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	mu     sync.RWMutex
)

func init() {
	logger = newLogger(Options{Level: LevelInfo})
}

// Level represents logging levels
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// Options configures the logger
type Options struct {
	Level   Level
	JSON    bool
	Output  io.Writer
	Verbose bool
}

// Configure sets up the global logger
func Configure(opts Options) {
	l := newLogger(opts)

	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func newLogger(opts Options) *zap.SugaredLogger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level := opts.Level
	if opts.Verbose {
		level = LevelDebug
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar()
}

// SetLogger replaces the global logger. Tests use it with an observer core.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

// Logger returns the global logger
func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a logger with additional attributes
func With(args ...any) *zap.SugaredLogger {
	return Logger().With(args...)
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = Logger().Sync()
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Logger().Debugw(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Logger().Infow(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Logger().Warnw(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Logger().Errorw(msg, args...)
}

// Err logs err under the "error" key. A nil error adds nothing.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Phase tags an entry with the phase it refers to. The empty phase is
// logged as "none".
func Phase[P ~string](p P) zap.Field {
	if p == "" {
		return zap.String("phase", "none")
	}
	return zap.String("phase", string(p))
}

// Transition returns the fields of a phase transition, ready to splice into
// a call: log.Info("advanced", log.Transition(from, to)...).
func Transition[P ~string](from, to P) []any {
	if to == "" {
		to = "none"
	}
	return []any{zap.String("from", string(from)), zap.String("to", string(to))}
}
