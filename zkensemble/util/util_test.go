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

package util

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/govisor/zkensemble/rest"
)

func TestStatus(t *testing.T) {
	Convey("Instance status words", t, func() {
		So(Status(&rest.InstanceInfo{}), ShouldEqual, "stopped")
		So(Status(&rest.InstanceInfo{Running: true}), ShouldEqual, "unhealthy")
		So(Status(&rest.InstanceInfo{Running: true, Healthy: true}), ShouldEqual, "running")
		So(Status(&rest.InstanceInfo{Running: true, Failed: true}), ShouldEqual, "failed")
	})
}

func TestFormatDuration(t *testing.T) {
	Convey("Durations print as h:mm:ss", t, func() {
		So(FormatDuration(0), ShouldEqual, "0:00:00")
		So(FormatDuration(time.Second*61), ShouldEqual, "0:01:01")
		So(FormatDuration(time.Hour*26+time.Minute*3+time.Second*9), ShouldEqual, "26:03:09")
	})
}

func TestPorts(t *testing.T) {
	Convey("Ports are joined with colons", t, func() {
		s := &rest.InstanceInfo{ClientPort: 2181, PeerPort: 2888, ElectionPort: 3888}
		So(Ports(s), ShouldEqual, "2181:2888:3888")
	})
}

func TestSortInstances(t *testing.T) {
	Convey("Failed instances sort first, then by id", t, func() {
		items := []*rest.InstanceInfo{
			{ID: 3},
			{ID: 2, Failed: true},
			{ID: 1},
		}
		SortInstances(items)
		So(items[0].ID, ShouldEqual, 2)
		So(items[1].ID, ShouldEqual, 1)
		So(items[2].ID, ShouldEqual, 3)
	})
}
