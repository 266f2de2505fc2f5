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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	configFileName    = "zoo.cfg"
	logConfigFileName = "log4j.properties"
	myIDFileName      = "myid"

	// Servers bind every interface; health checks always go over
	// loopback whatever hostname is advertised.
	loopbackHost = "127.0.0.1"
)

// Instance status strings, as reported by Status.
const (
	StatusStopped  = "Stopped"
	StatusStarting = "Starting"
	StatusRunning  = "Running"
	StatusStopping = "Stopping"
	StatusFailed   = "Failed"
)

// Instance is one server of an ensemble: where it lives on disk, the
// ports it uses, and the process running it, if any.  The descriptor
// fields never change.  Start and Stop may be called from any goroutine.
type Instance struct {
	id           int
	clientPort   int
	peerPort     int
	electionPort int
	hostname     string
	baseDir      string

	dist         Distribution
	startTimeout time.Duration
	stopTimeout  time.Duration
	logger       Logger
	log          *Log
	mlog         *MultiLogger
	notify       func()

	cmd    *exec.Cmd     // nil unless a process is running
	done   chan struct{} // closed once cmd has exited
	group  processGroup
	failed bool
	reason error
	status string
	stamp  time.Time
	lock   sync.Mutex

	starts   atomic.Int64
	failures atomic.Int64
}

type instanceConfig struct {
	id           int
	clientPort   int
	peerPort     int
	electionPort int
	hostname     string
	baseDir      string
	dist         Distribution
	startTimeout time.Duration
	stopTimeout  time.Duration
	logger       Logger
	notify       func()
}

func newInstance(c instanceConfig) *Instance {
	i := &Instance{
		id:           c.id,
		clientPort:   c.clientPort,
		peerPort:     c.peerPort,
		electionPort: c.electionPort,
		hostname:     c.hostname,
		baseDir:      c.baseDir,
		dist:         c.dist,
		startTimeout: c.startTimeout,
		stopTimeout:  c.stopTimeout,
		notify:       c.notify,
		status:       StatusStopped,
		stamp:        time.Now(),
	}
	if i.hostname == "" {
		i.hostname = DefaultHostname
	}
	if i.startTimeout == 0 {
		i.startTimeout = DefaultStartTimeout
	}
	if i.stopTimeout == 0 {
		i.stopTimeout = DefaultStopTimeout
	}
	logger := c.logger
	if logger == nil {
		logger = NopLogger()
	}
	i.logger = logger.ForContext(i.Name())
	i.log = NewLog()
	i.mlog = NewMultiLogger()
	i.mlog.AddWriter(i.log)
	i.mlog.AddWriter(debugWriter{logger: i.logger})
	return i
}

func (i *Instance) ID() int {
	return i.id
}

// Name is ZK-<id>, the name of the instance directory and server log.
func (i *Instance) Name() string {
	return "ZK-" + strconv.Itoa(i.id)
}

func (i *Instance) ClientPort() int {
	return i.clientPort
}

func (i *Instance) PeerPort() int {
	return i.peerPort
}

func (i *Instance) ElectionPort() int {
	return i.electionPort
}

// Hostname is the advertised host name.
func (i *Instance) Hostname() string {
	return i.hostname
}

// Address is hostname:clientPort, the form used in connection strings.
func (i *Instance) Address() string {
	return i.hostname + ":" + strconv.Itoa(i.clientPort)
}

func (i *Instance) BaseDirectory() string {
	return i.baseDir
}

func (i *Instance) BinDirectory() string {
	return filepath.Join(i.baseDir, "bin")
}

func (i *Instance) LibDirectory() string {
	return filepath.Join(i.baseDir, "lib")
}

func (i *Instance) ConfDirectory() string {
	return filepath.Join(i.baseDir, "conf")
}

func (i *Instance) DataDirectory() string {
	return filepath.Join(i.baseDir, "data")
}

func (i *Instance) ConfigFile() string {
	return filepath.Join(i.ConfDirectory(), configFileName)
}

func (i *Instance) LogConfigFile() string {
	return filepath.Join(i.ConfDirectory(), logConfigFileName)
}

func (i *Instance) MyIDFile() string {
	return filepath.Join(i.DataDirectory(), myIDFileName)
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s:%d:%d:%d (id %d) at '%s'", i.hostname,
		i.clientPort, i.peerPort, i.electionPort, i.id, i.baseDir)
}

// setStatus must be called with the lock held.
func (i *Instance) setStatus(status string) {
	i.status = status
	i.stamp = time.Now()
	if i.notify != nil {
		i.notify()
	}
}

func (i *Instance) doLog(r io.ReadCloser, prefix string) {
	reader := bufio.NewReader(r)
	logger := i.mlog.Logger()
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			logger.Print(prefix, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

// doWait reaps the process.  If nobody asked for it to stop, the exit is
// a failure: the state is cleared and whatever the server left behind is
// killed.
func (i *Instance) doWait(cmd *exec.Cmd, done chan struct{}, group processGroup) {
	e := cmd.Wait()

	i.lock.Lock()
	abnormal := i.cmd == cmd
	if abnormal {
		if e == nil {
			e = errors.New("unexpected termination")
		}
		i.cmd = nil
		i.group = nil
		i.failed = true
		i.reason = e
		i.setStatus(StatusFailed)
	}
	i.lock.Unlock()
	close(done)

	if abnormal {
		i.failures.Add(1)
		i.logger.Error(e, "Instance exited unexpectedly.")
		group.kill()
		group.release()
	}
}

// Start launches the server and waits until it answers the health check.
// It does nothing if the server is already running.  A server that
// launches but never becomes healthy is left running, so the caller can
// inspect it before stopping it.
func (i *Instance) Start() error {
	i.lock.Lock()
	if i.cmd != nil {
		i.lock.Unlock()
		return nil
	}
	cmd, group, e := i.launch()
	if e != nil {
		i.failed = true
		i.reason = e
		i.setStatus(StatusFailed)
		i.lock.Unlock()
		i.logger.Error(e, "Failed to start instance.")
		return &ProcessStartError{ID: i.id, Err: e}
	}
	done := make(chan struct{})
	i.cmd = cmd
	i.done = done
	i.group = group
	i.failed = false
	i.reason = nil
	i.setStatus(StatusStarting)
	go i.doWait(cmd, done, group)
	i.lock.Unlock()

	pid := cmd.Process.Pid
	i.logger.Info(fmt.Sprintf("Started process %d for %v.", pid, i))

	hc := NewHealthChecker(i.logger, loopbackHost, i.clientPort)
	if !hc.waitStarted(i.startTimeout, done) {
		select {
		case <-done:
			// The reaper has already recorded the failure.
			reason := i.Reason()
			if reason == nil {
				reason = errors.New("process exited")
			}
			e = fmt.Errorf("exited before answering on port %d: %w",
				i.clientPort, reason)
			return &ProcessStartError{ID: i.id, Err: e}
		default:
		}
		e = fmt.Errorf("no healthy response on port %d within %v",
			i.clientPort, i.startTimeout)
		i.lock.Lock()
		if i.cmd == cmd {
			i.failed = true
			i.reason = e
			i.setStatus(StatusFailed)
		}
		i.lock.Unlock()
		i.failures.Add(1)
		return &ProcessStartError{ID: i.id, Err: e}
	}

	// The launcher forks the real server; make sure it is in the group
	// even if the platform does not do that by itself.
	if pids, e := descendantPids(pid); e != nil {
		i.logger.Debug("Unable to enumerate child processes: " + e.Error())
	} else {
		for _, p := range pids {
			if e := group.add(p); e != nil {
				i.logger.Debug(fmt.Sprintf("Unable to track child %d: %v", p, e))
			}
		}
	}

	i.lock.Lock()
	if i.cmd != cmd {
		// Stopped or died while we were waiting.
		i.lock.Unlock()
		return &ProcessStartError{ID: i.id, Err: errors.New("stopped while starting")}
	}
	i.setStatus(StatusRunning)
	i.lock.Unlock()
	i.starts.Add(1)
	return nil
}

// launch builds and starts the command.  Called with the lock held; it
// returns as soon as the process exists.
func (i *Instance) launch() (*exec.Cmd, processGroup, error) {
	if i.dist == nil {
		return nil, nil, errors.New("no distribution configured")
	}
	cmd, e := i.dist.Command(i)
	if e != nil {
		return nil, nil, e
	}
	group, e := newProcessGroup(i.logger)
	if e != nil {
		return nil, nil, e
	}
	group.prepare(cmd)

	// Never inherit our own streams.
	cmd.Stdin = nil
	stdout, e := cmd.StdoutPipe()
	if e != nil {
		group.release()
		return nil, nil, e
	}
	stderr, e := cmd.StderrPipe()
	if e != nil {
		group.release()
		return nil, nil, e
	}
	if e = cmd.Start(); e != nil {
		group.release()
		return nil, nil, e
	}
	go i.doLog(stdout, "stdout> ")
	go i.doLog(stderr, "stderr> ")

	if e = group.add(cmd.Process.Pid); e != nil {
		i.logger.Debug("Unable to add process to group: " + e.Error())
	}
	return cmd, group, nil
}

// Stop kills the server and everything it started, then waits a bounded
// time for it to exit.  Failures are logged and otherwise ignored; the
// instance counts as stopped once Stop returns.
func (i *Instance) Stop() {
	i.lock.Lock()
	cmd, done, group := i.cmd, i.done, i.group
	if cmd == nil {
		i.lock.Unlock()
		return
	}
	i.cmd = nil
	i.group = nil
	i.setStatus(StatusStopping)
	i.lock.Unlock()

	if e := group.kill(); e != nil {
		i.logger.Debug(fmt.Sprintf("%v: %v", ErrProcessStop, e))
	}
	if e := cmd.Process.Kill(); e != nil && !errors.Is(e, os.ErrProcessDone) {
		i.logger.Debug(fmt.Sprintf("%v: %v", ErrProcessStop, e))
	}
	timer := time.NewTimer(i.stopTimeout)
	select {
	case <-done:
	case <-timer.C:
		i.logger.Debug(fmt.Sprintf("Process %d did not exit within %v.",
			cmd.Process.Pid, i.stopTimeout))
	}
	timer.Stop()
	if e := group.release(); e != nil {
		i.logger.Debug("Unable to release process group: " + e.Error())
	}

	i.lock.Lock()
	if i.cmd == nil {
		i.setStatus(StatusStopped)
	}
	i.lock.Unlock()
	i.logger.Info(fmt.Sprintf("Stopped %v.", i))
}

// Restart stops the server if it is running and starts it again.
func (i *Instance) Restart() error {
	i.Stop()
	return i.Start()
}

// IsRunning reports whether a process is attached and has not exited.
func (i *Instance) IsRunning() bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.cmd == nil {
		return false
	}
	select {
	case <-i.done:
		return false
	default:
		return true
	}
}

// Failed reports whether the last start failed or the server exited on
// its own.
func (i *Instance) Failed() bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.failed
}

// Reason returns why the instance failed, or nil.
func (i *Instance) Reason() error {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.reason
}

// Status returns the current status string and when it was entered.
func (i *Instance) Status() (string, time.Time) {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.status, i.stamp
}

// Pid returns the launched process id, or 0 if not running.
func (i *Instance) Pid() int {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.cmd == nil || i.cmd.Process == nil {
		return 0
	}
	return i.cmd.Process.Pid
}

// Starts counts successful starts.
func (i *Instance) Starts() int64 {
	return i.starts.Load()
}

// Failures counts failed starts and unexpected exits.
func (i *Instance) Failures() int64 {
	return i.failures.Load()
}

// GetLog returns the captured server output.  See Log.GetRecords.
func (i *Instance) GetLog(last int64) ([]LogRecord, int64) {
	return i.log.GetRecords(last)
}

// WatchLog blocks until new output arrives or expire passes.
func (i *Instance) WatchLog(last int64, expire time.Duration) int64 {
	return i.log.Watch(last, expire)
}
