// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log adapts github.com/luxfi/log for this core: a helper that
// tags a subsystem's logger with its component name, and a no-op logger
// for tests that don't care about log output.
package log

import (
	"context"
	"log/slog"

	"github.com/luxfi/log"
)

// New returns base tagged with "component" = name, the convention every
// long-lived subsystem (proposer, consensus, executor, state handler,
// global state manager) uses to scope its log lines.
func New(base log.Logger, component string) log.Logger {
	if base == nil {
		return NewNoOpLogger()
	}
	return base.With("component", component)
}

// NoLog is a no-op implementation of log.Logger, used by tests that don't
// exercise logging behavior.
type NoLog struct{}

// NewNoOpLogger returns a logger that discards everything.
func NewNoOpLogger() log.Logger {
	return NoLog{}
}

func (n NoLog) With(ctx ...interface{}) log.Logger { return n }
func (n NoLog) New(ctx ...interface{}) log.Logger  { return n }

func (NoLog) Log(level slog.Level, msg string, ctx ...interface{}) {}
func (NoLog) Trace(msg string, ctx ...interface{})                 {}
func (NoLog) Debug(msg string, ctx ...interface{})                 {}
func (NoLog) Info(msg string, ctx ...interface{})                  {}
func (NoLog) Warn(msg string, ctx ...interface{})                  {}
func (NoLog) Error(msg string, ctx ...interface{})                 {}
func (NoLog) Crit(msg string, ctx ...interface{})                  {}
func (NoLog) WriteLog(level slog.Level, msg string, attrs ...any)  {}

func (NoLog) Enabled(ctx context.Context, level slog.Level) bool { return false }
func (NoLog) Handler() slog.Handler                              { return nil }

func (NoLog) SetLevel(level slog.Level)          {}
func (NoLog) GetLevel() slog.Level               { return slog.Level(0) }
func (NoLog) EnabledLevel(lvl slog.Level) bool   { return false }
func (NoLog) StopOnPanic()                       {}
func (NoLog) RecoverAndPanic(f func())           { f() }
func (NoLog) RecoverAndExit(f, exit func())      { f() }
func (NoLog) Stop()                              {}
func (NoLog) Write(p []byte) (n int, err error)  { return len(p), nil }
