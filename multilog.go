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
	"strings"
	"sync"
)

// MultiLogger is an io.Writer that splits what it receives into lines and
// hands each line to every registered logger.  Instances use it to send
// the server's output to their own Log and, at debug level, to the
// ensemble Logger at the same time.
type MultiLogger struct {
	log     *log.Logger
	loggers []*log.Logger
	lock    sync.Mutex
}

// Write expects whole lines, the way log.Logger delivers them.
func (l *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	l.lock.Lock()
	for _, line := range lines {
		for _, logger := range l.loggers {
			logger.Println(line)
		}
	}
	l.lock.Unlock()
	return len(b), nil
}

// AddLogger registers a destination.  Adding the same logger twice has no
// effect.
func (l *MultiLogger) AddLogger(logger *log.Logger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, x := range l.loggers {
		if x == logger {
			return
		}
	}
	l.loggers = append(l.loggers, logger)
}

// AddWriter registers w as a destination, wrapped in a logger that adds
// no prefix and no flags.
func (l *MultiLogger) AddWriter(w io.Writer) *log.Logger {
	logger := log.New(w, "", 0)
	l.AddLogger(logger)
	return logger
}

// Logger returns a log.Logger writing into the MultiLogger.
func (l *MultiLogger) Logger() *log.Logger {
	return l.log
}

func NewMultiLogger() *MultiLogger {
	m := &MultiLogger{}
	m.log = log.New(m, "", 0)
	return m
}

// debugWriter feeds each line it receives to Logger.Debug.
type debugWriter struct {
	logger Logger
}

func (w debugWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		w.logger.Debug(line)
	}
	return len(b), nil
}
