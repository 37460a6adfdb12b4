package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging field.
type Field = zap.Field

// Logger is the structured logger every package receives. Implementations
// are safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	Sync() error
}

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

type zapLogger struct {
	base *zap.Logger
}

// New writes to stderr: coloured console lines when pretty, JSON otherwise.
// Unknown levels fall back to info.
func New(level string, pretty bool) Logger {
	lvl, ok := levels[level]
	if !ok {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	base, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		// Build only fails on bad sinks or encoders, both fixed above.
		panic(err)
	}
	return &zapLogger{base: base}
}

// FromZap adapts an existing zap logger, e.g. one built on an observer core.
func FromZap(base *zap.Logger) Logger { return &zapLogger{base: base} }

func Nop() Logger { return FromZap(zap.NewNop()) }

// LevelForVerbosity returns debug when -v was given at least once and the
// configured level otherwise.
func LevelForVerbosity(configured string, verbosity int) string {
	if verbosity > 0 {
		return "debug"
	}
	return configured
}

func ValidLevel(lvl string) bool {
	_, ok := levels[lvl]
	return ok
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.base.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.base.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.base.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.base.Error(msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger { return &zapLogger{base: l.base.With(fields...)} }

func (l *zapLogger) Sync() error { return l.base.Sync() }

func String(key, val string) Field                 { return zap.String(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Uint(key string, val uint) Field              { return zap.Uint(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Error(err error) Field                        { return zap.Error(err) }
