// Package logging wraps zap with the console/file sink split and severity
// vocabulary archivum commands share: stderr console output for humans,
// an optional rotated log file for --log-file. Neither sink adds ANSI color
// codes, and message text is written as given, without stripping any.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a zap logger with the fields archivum commands attach most.
type Logger struct {
	zap         *zap.Logger
	atomicLevel zap.AtomicLevel
}

// New builds a logger from Config. The console sink always targets stderr;
// a file sink is appended when config.LogFile is set, rotated via lumberjack.
func New(config *Config) (*Logger, error) {
	if config == nil {
		return nil, fmt.Errorf("logging: config cannot be nil")
	}

	level := ParseSeverity(config.DefaultLevel).ToZapLevel()
	atomicLevel := zap.NewAtomicLevelAt(level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    severityEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stderr), atomicLevel),
	}

	if config.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    config.FileMaxSizeMB,
			MaxAge:     config.FileMaxAgeDays,
			MaxBackups: config.FileMaxBackups,
			Compress:   config.FileCompress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), atomicLevel))
	}

	opts := []zap.Option{zap.AddCaller()}
	if config.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	fields := make([]zap.Field, 0, len(config.StaticFields)+1)
	fields = append(fields, zap.String("service", config.Service))
	for k, v := range config.StaticFields {
		fields = append(fields, zap.Any(k, v))
	}
	opts = append(opts, zap.Fields(fields...))

	return &Logger{
		zap:         zap.New(zapcore.NewTee(cores...), opts...),
		atomicLevel: atomicLevel,
	}, nil
}

// NewCLI builds a stderr-only logger for the given service name.
func NewCLI(service string) (*Logger, error) {
	return New(DefaultConfig(service))
}

func severityEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARN")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		enc.AppendString("FATAL")
	default:
		enc.AppendString("INFO")
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// WithComponent returns a logger tagged with the given component name,
// e.g. "scanner", "packer", "extractor".
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("component", component)), atomicLevel: l.atomicLevel}
}

// WithError returns a logger annotated with err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zap: l.zap.With(zap.Error(err)), atomicLevel: l.atomicLevel}
}

// SetLevel dynamically changes the minimum log level.
func (l *Logger) SetLevel(s Severity) { l.atomicLevel.SetLevel(s.ToZapLevel()) }

// Sync flushes buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }
