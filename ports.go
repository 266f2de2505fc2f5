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
	"errors"
	"net"
)

const maxPortAttempts = 16

// AllocateFreePort asks the operating system for an unused loopback TCP
// port and releases it again immediately.  Nothing stops another process
// from grabbing the port before the server binds it; the window is kept
// small by launching shortly afterwards.
func AllocateFreePort() (int, error) {
	l, e := net.Listen("tcp", "127.0.0.1:0")
	if e != nil {
		return 0, &PortAllocationError{Err: e}
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}

// portSet hands out ports that are unique within one ensemble.  It is
// local to a single New call; there is no state shared between ensembles.
type portSet struct {
	taken map[int]bool
}

func newPortSet(reserved []int) *portSet {
	ps := &portSet{taken: make(map[int]bool)}
	for _, p := range reserved {
		ps.taken[p] = true
	}
	return ps
}

func (ps *portSet) allocate() (int, error) {
	for i := 0; i < maxPortAttempts; i++ {
		p, e := AllocateFreePort()
		if e != nil {
			return 0, e
		}
		if !ps.taken[p] {
			ps.taken[p] = true
			return p, nil
		}
	}
	return 0, &PortAllocationError{
		Err: errors.New("operating system keeps returning ports already in use by this ensemble"),
	}
}
