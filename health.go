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
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	HealthCommand  = "ruok"
	HealthResponse = "imok"

	checkInterval = time.Millisecond * 500
	checkTimeout  = time.Second
)

// HealthChecker polls a server's client port with the four letter word
// check.  It is synchronous; WaitStarted blocks the calling goroutine.
type HealthChecker struct {
	addr     string
	logger   Logger
	interval time.Duration
}

func NewHealthChecker(logger Logger, host string, port int) *HealthChecker {
	return &HealthChecker{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		logger:   logger,
		interval: checkInterval,
	}
}

// SendFourLetterWord writes word to the server and returns everything it
// sends back before closing the connection.
func (h *HealthChecker) SendFourLetterWord(word string) (string, error) {
	conn, e := net.DialTimeout("tcp", h.addr, checkTimeout)
	if e != nil {
		return "", e
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(checkTimeout))
	if _, e = io.WriteString(conn, word); e != nil {
		return "", e
	}
	b, e := io.ReadAll(conn)
	if e != nil {
		return "", e
	}
	return string(b), nil
}

// Check performs a single health check.  It returns nil only if the server
// answered exactly imok.
func (h *HealthChecker) Check() error {
	h.logger.Debug(fmt.Sprintf("Sending `%s` command to %s.", HealthCommand, h.addr))
	reply, e := h.SendFourLetterWord(HealthCommand)
	if e != nil {
		h.logger.Debug(fmt.Sprintf("Server %s is not available: %v", h.addr, e))
		return e
	}
	h.logger.Debug(fmt.Sprintf("Response to `%s` command is '%s'.", HealthCommand, reply))
	if reply != HealthResponse {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	return nil
}

// WaitStarted checks until the server reports healthy or timeout passes.
// Refused connections just mean the server is not listening yet.
func (h *HealthChecker) WaitStarted(timeout time.Duration) bool {
	return h.waitStarted(timeout, nil)
}

// waitStarted is WaitStarted that gives up as soon as gone is closed.
func (h *HealthChecker) waitStarted(timeout time.Duration, gone <-chan struct{}) bool {
	h.logger.Debug("Waiting for the instance to start..")
	start := time.Now()
	for {
		if h.Check() == nil {
			h.logger.Debug(fmt.Sprintf("Instance has started in %v.",
				time.Since(start).Round(time.Millisecond)))
			return true
		}
		if time.Since(start)+h.interval >= timeout {
			break
		}
		select {
		case <-gone:
			h.logger.Info("Instance exited before it answered.")
			return false
		case <-time.After(h.interval):
		}
	}
	h.logger.Info(fmt.Sprintf("Instance has not started in %v.", timeout))
	return false
}
