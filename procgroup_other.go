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

//go:build !unix && !windows

package zkensemble

import (
	"os/exec"
	"sync"
)

// scanGroup is used where the platform offers no kill-group.  It falls
// back to enumerating descendants right before the kill.
type scanGroup struct {
	leader int
	pids   []int
	logger Logger
	lock   sync.Mutex
}

func newProcessGroup(logger Logger) (processGroup, error) {
	return &scanGroup{logger: logger}, nil
}

func (g *scanGroup) prepare(cmd *exec.Cmd) {}

func (g *scanGroup) add(pid int) error {
	g.lock.Lock()
	if g.leader == 0 {
		g.leader = pid
	} else {
		g.pids = append(g.pids, pid)
	}
	g.lock.Unlock()
	return nil
}

func (g *scanGroup) kill() error {
	g.lock.Lock()
	leader := g.leader
	pids := append([]int{}, g.pids...)
	g.lock.Unlock()

	if leader == 0 {
		return nil
	}
	if found, e := descendantPids(leader); e == nil {
		pids = append(pids, found...)
	}
	killPids(g.logger, append([]int{leader}, pids...))
	return nil
}

func (g *scanGroup) release() error {
	g.lock.Lock()
	g.leader = 0
	g.pids = nil
	g.lock.Unlock()
	return nil
}
