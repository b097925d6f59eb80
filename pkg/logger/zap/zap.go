// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package zap adapts go.uber.org/zap to the pion logging interfaces.
package zap

import (
	"fmt"

	"github.com/pion/logging"
	"go.uber.org/zap"
)

// TraceLevel sits below zap's debug level; trace lines are written at it so
// they can be enabled separately.
const TraceLevel = zap.DebugLevel - 1

// Factory is a logging.LoggerFactory based on go.uber.org/zap. Every scope
// gets a named child of the base logger.
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a LoggerFactory from a zap.Logger.
func NewFactory(l *zap.Logger) *Factory {
	return &Factory{logger: l}
}

// NewLogger returns the logger for scope.
func (f *Factory) NewLogger(scope string) logging.LeveledLogger {
	return New(f.logger.Named(scope))
}

// Zap is a logging.LeveledLogger based on go.uber.org/zap.
type Zap struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// New creates a LeveledLogger from a zap.Logger.
func New(l *zap.Logger) *Zap {
	return &Zap{logger: l, sugar: l.Sugar()}
}

// Trace logs a message below debug level.
func (l *Zap) Trace(msg string) {
	if ce := l.logger.Check(TraceLevel, msg); ce != nil {
		ce.Write()
	}
}

// Tracef formats and logs a message below debug level.
func (l *Zap) Tracef(format string, args ...any) {
	if !l.logger.Core().Enabled(TraceLevel) {
		return
	}
	l.Trace(fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func (l *Zap) Debug(msg string) { l.logger.Debug(msg) }

// Debugf formats and logs a debug message.
func (l *Zap) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }

// Info logs an info message.
func (l *Zap) Info(msg string) { l.logger.Info(msg) }

// Infof formats and logs an info message.
func (l *Zap) Infof(format string, args ...any) { l.sugar.Infof(format, args...) }

// Warn logs a warning.
func (l *Zap) Warn(msg string) { l.logger.Warn(msg) }

// Warnf formats and logs a warning.
func (l *Zap) Warnf(format string, args ...any) { l.sugar.Warnf(format, args...) }

// Error logs an error message.
func (l *Zap) Error(msg string) { l.logger.Error(msg) }

// Errorf formats and logs an error message.
func (l *Zap) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
