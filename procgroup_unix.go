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

//go:build unix

package zkensemble

import (
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// unixGroup puts the server in a process group of its own.  A signal to
// the negative group id reaches every member.  Descendants that moved to
// another group or session are found by walking parent pids, both when
// they are added and again right before the kill.
type unixGroup struct {
	leader int
	pids   []int
	logger Logger
	lock   sync.Mutex
}

func newProcessGroup(logger Logger) (processGroup, error) {
	return &unixGroup{logger: logger}, nil
}

func (g *unixGroup) prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func (g *unixGroup) add(pid int) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.leader == 0 {
		g.leader = pid
		return nil
	}
	for _, p := range g.pids {
		if p == pid {
			return nil
		}
	}
	g.pids = append(g.pids, pid)
	return nil
}

func (g *unixGroup) kill() error {
	g.lock.Lock()
	leader := g.leader
	pids := append([]int{}, g.pids...)
	g.lock.Unlock()

	if leader == 0 {
		return nil
	}

	// Collect before killing; once the leader dies its children are
	// reparented and can no longer be found from it.
	if found, e := descendantPids(leader); e == nil {
		pids = append(pids, found...)
	} else {
		g.logger.Debug("Unable to enumerate descendants: " + e.Error())
	}

	if e := unix.Kill(-leader, unix.SIGKILL); e != nil && e != unix.ESRCH {
		g.logger.Debug("Failed killing process group: " + e.Error())
	}
	// Anything that escaped the group.
	var stray []int
	for _, p := range pids {
		if pgid, e := unix.Getpgid(p); e == nil && pgid != leader {
			stray = append(stray, p)
		}
	}
	killPids(g.logger, stray)
	return nil
}

func (g *unixGroup) release() error {
	g.lock.Lock()
	g.leader = 0
	g.pids = nil
	g.lock.Unlock()
	return nil
}
