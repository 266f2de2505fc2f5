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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"fmt"
	"sort"
	"time"

	"github.com/govisor/zkensemble/rest"
)

func Status(s *rest.InstanceInfo) string {
	if s.Failed {
		return "failed"
	}
	if s.Running {
		if s.Healthy {
			return "running"
		}
		return "unhealthy"
	}
	return "stopped"
}

func FormatDuration(d time.Duration) string {

	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

// Ports renders the client, peer, and election ports the way they appear
// in a member line.
func Ports(s *rest.InstanceInfo) string {
	return fmt.Sprintf("%d:%d:%d", s.ClientPort, s.PeerPort, s.ElectionPort)
}

type sorted []*rest.InstanceInfo

func (s sorted) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sorted) Len() int {
	return len(s)
}

func (s sorted) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	if a.Failed != b.Failed {
		// put failed items at front
		return a.Failed
	}
	return a.ID < b.ID
}

func SortInstances(items []*rest.InstanceInfo) {
	sort.Sort(sorted(items))
}
