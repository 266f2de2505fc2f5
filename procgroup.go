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
	"os/exec"
)

// processGroup ties a launched server to everything it spawns, so that
// killing the group takes down the whole tree.  The launcher script starts
// the JVM as a child; killing only the script would leave the JVM running
// and holding the ports.
//
// Each platform has its own backend, picked at build time by
// newProcessGroup.  Nothing outside the procgroup files knows which one is
// in use.
type processGroup interface {
	// prepare adjusts the command before it is started.
	prepare(cmd *exec.Cmd)

	// add registers a started process.  The first call must be for the
	// process started from the prepared command.
	add(pid int) error

	// kill terminates every process in the group.  Processes that are
	// already gone are not an error.
	kill() error

	// release frees any operating system resources held by the group.
	release() error
}
