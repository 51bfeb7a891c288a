// Package logging builds the process logger: console plus a size-rotated file.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the rotating file sink.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Rotating opens a size-rotated file writer, creating its directory.
func Rotating(opts Options) (io.WriteCloser, error) {
	if dir := filepath.Dir(opts.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}, nil
}

// New returns a zap logger and the rotating writer it logs to. The file only
// ever holds zap's JSON lines; the caller closes the writer on exit.
func New(opts Options) (*zap.Logger, io.WriteCloser, error) {
	rotating, err := Rotating(opts)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotating), zap.InfoLevel),
	)

	return zap.New(core, zap.AddCaller()), rotating, nil
}
