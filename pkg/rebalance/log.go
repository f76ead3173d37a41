package rebalance

import (
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
)

// LogLevel mirrors the teacher's LogLevelDebug/Warn/Error split so call
// sites read the same way: logger.Log(LogLevelDebug, "msg", "k", v, ...).
type LogLevel int8

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "NONE"
	}
}

// Logger is the logging collaborator the core consumes. kv is an alternating
// key/value list, exactly like the teacher's cfg.logger.Log(level, msg, kv...).
type Logger interface {
	Level() LogLevel
	Log(level LogLevel, msg string, kv ...any)
}

// zapLogger adapts a *zap.Logger to the Logger interface. It is the default
// used when a Config does not supply one.
type zapLogger struct {
	z     *zap.Logger
	level LogLevel
}

// NewZapLogger wraps z, logging at level and below.
func NewZapLogger(z *zap.Logger, level LogLevel) Logger {
	return &zapLogger{z: z, level: level}
}

func (l *zapLogger) Level() LogLevel { return l.level }

func (l *zapLogger) Log(level LogLevel, msg string, kv ...any) {
	if level > l.level {
		return
	}
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	switch level {
	case LogLevelError:
		l.z.Error(msg, fields...)
	case LogLevelWarn:
		l.z.Warn(msg, fields...)
	case LogLevelInfo:
		l.z.Info(msg, fields...)
	default:
		l.z.Debug(msg, fields...)
	}
}

// defaultLogger returns a production zap logger at InfoLevel, used when a
// Config leaves Logger unset.
func defaultLogger() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return NewZapLogger(z, LogLevelInfo)
}

// nopLogger discards everything; handy for tests that don't care about log
// output but still need a non-nil Logger.
type nopLogger struct{}

func (nopLogger) Level() LogLevel             { return LogLevelNone }
func (nopLogger) Log(LogLevel, string, ...any) {}

// dumpPartitionSet renders a PartitionSet for a debug log line. Kept
// separate so the spew dependency has exactly one call site, matching how
// sparingly the teacher's pack reaches for verbose struct dumps.
func dumpPartitionSet(s *PartitionSet) string {
	if s.Empty() {
		return "{}"
	}
	return spew.Sdump(s.Sorted())
}
