// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLEvel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging the effects of each pass
	InfoLevel

	// DebugLevel=4 - the level for debugging information, e.g. every site a pass inspects
	DebugLevel

	// TraceLevel=5 - the level for tracing. Prints modules between passes, only useful on small inputs.
	TraceLevel
)

// LogGroup is a leveled logger. Messages above the configured level are dropped before reaching zap.
type LogGroup struct {
	level  LogLevel
	silent bool
	base   *zap.Logger
	trace  *zap.SugaredLogger
	sugar  *zap.SugaredLogger
}

// NewLogGroup returns a log group that is configured to the logging settings stored inside the config. Messages
// are written to stderr.
func NewLogGroup(config *Config) *LogGroup {
	return NewLogGroupWithLogger(config, newConsoleLogger(zapcore.Lock(os.Stderr)))
}

// NewLogGroupWithLogger returns a log group writing to logger, filtered by the level of the config
func NewLogGroupWithLogger(config *Config, logger *zap.Logger) *LogGroup {
	return &LogGroup{
		level:  LogLevel(config.LogLevel),
		silent: config.SilenceWarn,
		base:   logger,
		trace:  logger.Named("trace").Sugar(),
		sugar:  logger.Sugar(),
	}
}

func newConsoleLogger(w zapcore.WriteSyncer) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, zapcore.DebugLevel)
	return zap.New(core)
}

// SetAllOutput sets the output writer of the log group to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.base = newConsoleLogger(zapcore.AddSync(w))
	l.trace = l.base.Named("trace").Sugar()
	l.sugar = l.base.Sugar()
}

// Logger returns the underlying zap logger, for applications that need a logger as input
func (l *LogGroup) Logger() *zap.Logger {
	return l.base
}

// Level returns the level of the log group
func (l *LogGroup) Level() LogLevel {
	return l.level
}

// Tracef prints to the trace logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.trace.Debugf(format, v...)
	}
}

// Debugf prints to the debug logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.sugar.Debugf(format, v...)
	}
}

// Infof prints to the info logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.sugar.Infof(format, v...)
	}
}

// Warnf prints to the warning logger, unless warnings are silenced. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel && !l.silent {
		l.sugar.Warnf(format, v...)
	}
}

// Errorf prints to the error logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.sugar.Errorf(format, v...)
	}
}

// Sync flushes the buffered log entries
func (l *LogGroup) Sync() error {
	return l.base.Sync()
}
