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

//go:build windows

package zkensemble

import (
	"os/exec"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// jobGroup is a Windows job object created with KILL_ON_JOB_CLOSE.
// Processes assigned to the job, and anything they start afterwards, die
// when the job is terminated or its last handle is closed.
type jobGroup struct {
	job    windows.Handle
	logger Logger
	lock   sync.Mutex
}

func newProcessGroup(logger Logger) (processGroup, error) {
	job, e := windows.CreateJobObject(nil, nil)
	if e != nil {
		return nil, e
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, e = windows.SetInformationJobObject(job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info))); e != nil {
		windows.CloseHandle(job)
		return nil, e
	}
	return &jobGroup{job: job, logger: logger}, nil
}

func (g *jobGroup) prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NO_WINDOW
}

func (g *jobGroup) add(pid int) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.job == 0 {
		return nil
	}
	h, e := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE,
		false, uint32(pid))
	if e != nil {
		g.logger.Error(e, "ProcessKillJob. Failed to open process.")
		return e
	}
	defer windows.CloseHandle(h)
	if e = windows.AssignProcessToJobObject(g.job, h); e != nil {
		g.logger.Error(e, "ProcessKillJob. Failed to add process to job.")
		return e
	}
	return nil
}

func (g *jobGroup) kill() error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.job == 0 {
		return nil
	}
	if e := windows.TerminateJobObject(g.job, 1); e != nil {
		g.logger.Debug("Failed terminating job: " + e.Error())
	}
	return nil
}

func (g *jobGroup) release() error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.job == 0 {
		return nil
	}
	e := windows.CloseHandle(g.job)
	g.job = 0
	return e
}
