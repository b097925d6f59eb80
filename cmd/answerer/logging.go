// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pion/embedded-webrtc/pkg/filelog"
	zaplogger "github.com/pion/embedded-webrtc/pkg/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(level string) (zapcore.Level, error) {
	if level == "trace" {
		return zaplogger.TraceLevel, nil
	}

	return zapcore.ParseLevel(level)
}

// newLogger builds the process logger. The returned closer flushes and
// releases the sink and must be called after the last log line.
func newLogger(cfg logConfig, stderr io.Writer) (*zap.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		sink   zapcore.WriteSyncer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Sink {
	case sinkFile:
		var echo io.Writer
		if cfg.Echo {
			echo = stderr
		}
		fileLogger, fileErr := filelog.New(filelog.Config{
			BufferSize: cfg.BufferKB * 1024,
			MaxFiles:   cfg.MaxFiles,
			Dir:        cfg.FileDir,
			Echo:       echo,
		})
		if fileErr != nil {
			return nil, nil, fileErr
		}
		sink, closer = zapcore.AddSync(fileLogger), fileLogger
	case sinkLumberjack:
		rotating := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.FileDir, "answerer.log"),
			MaxSize:    cfg.RotateMB,
			MaxBackups: int(cfg.MaxFiles), //nolint:gosec
		}
		sink, closer = zapcore.AddSync(rotating), rotating
	default:
		if f, ok := stderr.(*os.File); ok {
			sink = zapcore.Lock(f)
		} else {
			sink = zapcore.AddSync(stderr)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, level)

	return zap.New(core), closer, nil
}
