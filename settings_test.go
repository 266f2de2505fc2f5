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
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSettingsValidate(t *testing.T) {
	Convey("Validate settings", t, func() {
		Convey("Defaults are valid", func() {
			So(NewSettings(3).Validate(), ShouldBeNil)
		})

		Convey("Size must be positive", func() {
			e := NewSettings(0).Validate()
			So(errors.Is(e, ErrConfiguration), ShouldBeTrue)
			var ce *ConfigurationError
			So(errors.As(e, &ce), ShouldBeTrue)
			So(ce.Field, ShouldEqual, "Size")
		})

		Convey("Port count must match size", func() {
			s := NewSettings(3)
			s.InstancesPorts = []int{20001, 20002}
			So(errors.Is(s.Validate(), ErrConfiguration), ShouldBeTrue)
		})

		Convey("Ports must be distinct", func() {
			s := NewSettings(2)
			s.InstancesPorts = []int{20001, 20001}
			So(errors.Is(s.Validate(), ErrConfiguration), ShouldBeTrue)
		})

		Convey("Ports must be in range", func() {
			s := NewSettings(1)
			s.InstancesPorts = []int{70000}
			So(errors.Is(s.Validate(), ErrConfiguration), ShouldBeTrue)
		})

		Convey("Starting ids must not be negative", func() {
			s := NewSettings(1)
			s.StartingID = -1
			e := s.Validate()
			So(errors.Is(e, ErrConfiguration), ShouldBeTrue)
			So(e.Error(), ShouldContainSubstring, "StartingID")
		})

		Convey("A zero starting id selects the default", func() {
			s := NewSettings(1)
			s.StartingID = 0
			So(s.Validate(), ShouldBeNil)
			So(s.withDefaults().StartingID, ShouldEqual, DefaultStartingID)
		})

		Convey("Timeouts must not be negative", func() {
			s := NewSettings(1)
			s.StopTimeout = -time.Second
			So(errors.Is(s.Validate(), ErrConfiguration), ShouldBeTrue)
		})
	})
}

func TestSettingsDefaults(t *testing.T) {
	Convey("Defaults are filled into a copy", t, func() {
		s := &Settings{Size: 2, InstancesPorts: []int{20001, 20002}}
		d := s.withDefaults()
		So(d.StartingID, ShouldEqual, DefaultStartingID)
		So(d.Hostname, ShouldEqual, DefaultHostname)
		So(d.StartTimeout, ShouldEqual, DefaultStartTimeout)
		So(d.StopTimeout, ShouldEqual, DefaultStopTimeout)
		So(d.Distribution, ShouldNotBeNil)
		So(d.Distribution.Name(), ShouldEqual, "zookeeper")

		s.InstancesPorts[0] = 1
		So(d.InstancesPorts[0], ShouldEqual, 20001)
		So(s.Distribution, ShouldBeNil)
	})
}

func TestLoadSettings(t *testing.T) {
	Convey("Load settings from JSON", t, func() {
		r := strings.NewReader(`{"name": "itest", "size": 3,
			"startingId": 4, "instancesPorts": [21001, 21002, 21003],
			"hostname": "zk.test", "startTimeout": 5000000000}`)
		s, e := LoadSettings(r, "json")
		So(e, ShouldBeNil)
		So(s.Name, ShouldEqual, "itest")
		So(s.Size, ShouldEqual, 3)
		So(s.StartingID, ShouldEqual, 4)
		So(s.InstancesPorts, ShouldResemble, []int{21001, 21002, 21003})
		So(s.Hostname, ShouldEqual, "zk.test")
		So(s.StartTimeout, ShouldEqual, time.Second*5)
		So(s.Validate(), ShouldBeNil)
	})

	Convey("Load settings from YAML", t, func() {
		r := strings.NewReader("size: 5\n" +
			"baseDirectory: /tmp/zk\n" +
			"logsDirectory: /tmp/zk/logs\n" +
			"zookeeperHome: /opt/zookeeper\n" +
			"startTimeout: 30s\n" +
			"stopTimeout: 2s\n")
		s, e := LoadSettings(r, ".yml")
		So(e, ShouldBeNil)
		So(s.Size, ShouldEqual, 5)
		So(s.BaseDirectory, ShouldEqual, "/tmp/zk")
		So(s.LogsDirectory, ShouldEqual, "/tmp/zk/logs")
		So(s.ZooKeeperHome, ShouldEqual, "/opt/zookeeper")
		So(s.StartTimeout, ShouldEqual, time.Second*30)
		So(s.StopTimeout, ShouldEqual, time.Second*2)
	})

	Convey("Bad durations are rejected", t, func() {
		_, e := LoadSettings(strings.NewReader("size: 1\nstartTimeout: soon\n"), "yaml")
		So(e, ShouldNotBeNil)
	})

	Convey("Unknown formats are rejected", t, func() {
		_, e := LoadSettings(strings.NewReader("size = 1"), "toml")
		So(e, ShouldEqual, ErrBadFormat)
	})
}
