package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var global *zap.Logger

// Option tweaks the sinks used by Init.
type Option func(*options)

type options struct {
	out  io.Writer
	file string
}

// WithOutput replaces stdout as the primary sink (used by tests).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithFile tees log entries into a size-rotated file.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// Init initializes a Zap logger with the provided level and format.
// level: debug, info, warn, error, dpanic, panic, fatal
// format: json, console
func Init(level, format string, opts ...Option) (*zap.Logger, error) {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	lvl := zap.InfoLevel
	if err := lvl.Set(strings.ToLower(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.MessageKey = "message"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "json":
		enc = zapcore.NewJSONEncoder(encoderCfg)
	case "console":
		enc = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	sink := zapcore.AddSync(o.out)
	if o.file != "" {
		rotating := &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(rotating))
	}

	core := zapcore.NewCore(enc, sink, lvl)
	l := zap.New(core, zap.AddCaller())
	global = l
	return l, nil
}

// L returns the global logger. Panics if not initialized.
func L() *zap.Logger {
	if global == nil {
		panic("logger not initialized: call logger.Init first")
	}
	return global
}

// ForProject returns the global logger scoped to a project.
func ForProject(projectID string) *zap.Logger {
	return L().With(zap.String("project_id", projectID))
}

// Sync flushes any buffered log entries.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
