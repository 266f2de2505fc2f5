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
	"context"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const scanTimeout = time.Second * 5

// descendants returns every live process below pid, parents before
// children.  It works by scanning the parent pid of every process on the
// host.  A process that started before its supposed parent is skipped,
// since that means the parent pid was recycled.
func descendants(pid int) ([]*process.Process, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	procs, e := process.ProcessesWithContext(ctx)
	if e != nil {
		return nil, e
	}
	children := make(map[int32][]*process.Process)
	created := make(map[int32]int64)
	for _, p := range procs {
		ppid, e := p.PpidWithContext(ctx)
		if e != nil {
			// Most likely exited while we were looking.
			continue
		}
		if ct, e := p.CreateTimeWithContext(ctx); e == nil {
			created[p.Pid] = ct
		}
		children[ppid] = append(children[ppid], p)
	}

	var rv []*process.Process
	seen := map[int32]bool{int32(pid): true}
	queue := []int32{int32(pid)}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range children[parent] {
			if seen[c.Pid] {
				continue
			}
			if pct, ok := created[parent]; ok {
				if cct, ok := created[c.Pid]; ok && cct < pct {
					continue
				}
			}
			seen[c.Pid] = true
			rv = append(rv, c)
			queue = append(queue, c.Pid)
		}
	}
	return rv, nil
}

// descendantPids is descendants reduced to pids.
func descendantPids(pid int) ([]int, error) {
	procs, e := descendants(pid)
	if e != nil {
		return nil, e
	}
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, int(p.Pid))
	}
	return pids, nil
}

// killPids kills each pid, deepest first so that parents do not get a
// chance to respawn children.  Failures, usually because the process is
// already gone, are logged and skipped.
func killPids(logger Logger, pids []int) {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()
	for i := len(pids) - 1; i >= 0; i-- {
		p, e := process.NewProcessWithContext(ctx, int32(pids[i]))
		if e != nil {
			continue
		}
		if e = p.KillWithContext(ctx); e != nil {
			logger.Debug("Failed killing descendant " +
				strconv.Itoa(pids[i]) + ": " + e.Error())
		}
	}
}
