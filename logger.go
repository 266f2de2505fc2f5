// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zkensemble

import (
	"io"
	"log"

	"github.com/hashicorp/go-hclog"
)

// Logger is the sink every component logs through.  It is handed to the
// ensemble at construction and passed down to each instance; there is no
// package level logger.  Implementations only format and forward.
type Logger interface {
	Info(msg string)
	Debug(msg string)
	Error(err error, msg string)

	// ForContext returns a Logger whose messages are tagged with name,
	// for example "ZK-1" for the first instance.
	ForContext(name string) Logger
}

type stdLogger struct {
	logger  *log.Logger
	context string
	debug   bool
}

func (l *stdLogger) print(level string, msg string) {
	if l.context != "" {
		l.logger.Printf("%s [%s] %s", level, l.context, msg)
	} else {
		l.logger.Printf("%s %s", level, msg)
	}
}

func (l *stdLogger) Info(msg string) {
	l.print("INFO ", msg)
}

func (l *stdLogger) Debug(msg string) {
	if l.debug {
		l.print("DEBUG", msg)
	}
}

func (l *stdLogger) Error(err error, msg string) {
	if err != nil {
		l.print("ERROR", msg+": "+err.Error())
	} else {
		l.print("ERROR", msg)
	}
}

func (l *stdLogger) ForContext(name string) Logger {
	ctx := name
	if l.context != "" {
		ctx = l.context + "." + name
	}
	return &stdLogger{logger: l.logger, context: ctx, debug: l.debug}
}

// NewLogger adapts a standard library logger.  Debug messages are only
// written when debug is true.
func NewLogger(logger *log.Logger, debug bool) Logger {
	return &stdLogger{logger: logger, debug: debug}
}

// NewWriterLogger is a convenience for NewLogger(log.New(w, "", log.LstdFlags), debug).
func NewWriterLogger(w io.Writer, debug bool) Logger {
	return NewLogger(log.New(w, "", log.LstdFlags), debug)
}

// NopLogger discards everything.
func NopLogger() Logger {
	return NewLogger(log.New(io.Discard, "", 0), false)
}

type hcLogger struct {
	logger hclog.Logger
}

func (l *hcLogger) Info(msg string) {
	l.logger.Info(msg)
}

func (l *hcLogger) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *hcLogger) Error(err error, msg string) {
	if err != nil {
		l.logger.Error(msg, "error", err)
	} else {
		l.logger.Error(msg)
	}
}

func (l *hcLogger) ForContext(name string) Logger {
	return &hcLogger{logger: l.logger.Named(name)}
}

// NewHclogLogger adapts a hashicorp hclog.Logger, keeping its levels and
// naming the context with Named.
func NewHclogLogger(logger hclog.Logger) Logger {
	return &hcLogger{logger: logger}
}
