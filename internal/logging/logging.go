// Package logging builds the zap logger used across zcurate. Records go to a
// rotating JSON file in the workspace and, when verbose, to stderr.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// Options configures New
type Options struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	Verbose    bool
	// Console receives verbose output; os.Stderr when nil
	Console    io.Writer
}

// New returns a logger writing JSON records to a rotating file
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, models.Configf("log.level: %v", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB, // Megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     30, // Days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level),
	}
	if opts.Verbose {
		var console zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
		if opts.Console != nil {
			console = zapcore.AddSync(opts.Console)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			console,
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
