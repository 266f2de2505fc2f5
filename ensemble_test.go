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
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func dirExists(path string) bool {
	_, e := os.Stat(path)
	return e == nil
}

func TestDeployNewRunsInstances(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5} {
		Convey(fmt.Sprintf("Deploy and start an ensemble of %d", size), t, func() {
			e, err := DeployNew(testSettings(t, size), testLogger(t), true)
			So(err, ShouldBeNil)
			defer e.Dispose()

			So(e.IsRunning(), ShouldBeTrue)
			So(e.IsDisposed(), ShouldBeFalse)
			insts := e.Instances()
			So(len(insts), ShouldEqual, size)

			ports := make(map[int]bool)
			for n, inst := range insts {
				So(inst.ID(), ShouldEqual, DefaultStartingID+n)
				So(inst.IsRunning(), ShouldBeTrue)
				So(filepath.Base(inst.BaseDirectory()), ShouldEqual, inst.Name())
				for _, p := range []int{inst.ClientPort(), inst.PeerPort(), inst.ElectionPort()} {
					So(ports[p], ShouldBeFalse)
					ports[p] = true
				}
				myid, err := os.ReadFile(inst.MyIDFile())
				So(err, ShouldBeNil)
				So(string(myid), ShouldEqual, strconv.Itoa(inst.ID()))
			}

			addrs := strings.Split(e.ConnectionString(), ",")
			So(len(addrs), ShouldEqual, size)
			So(addrs[0], ShouldEqual, "localhost:"+strconv.Itoa(insts[0].ClientPort()))

			topo := e.Topology()
			So(len(topo), ShouldEqual, size)
			So(topo[0].Scheme, ShouldEqual, "tcp")
			So(topo[0].Host, ShouldEqual, addrs[0])
		})
	}
}

func TestDeployNewWithoutStart(t *testing.T) {
	Convey("Deploy an ensemble without starting it", t, func() {
		e, err := DeployNew(testSettings(t, 3), testLogger(t), false)
		So(err, ShouldBeNil)
		defer e.Dispose()

		So(e.IsRunning(), ShouldBeFalse)
		for _, inst := range e.Instances() {
			So(inst.IsRunning(), ShouldBeFalse)
			So(dirExists(inst.ConfigFile()), ShouldBeTrue)
			So(dirExists(inst.LogConfigFile()), ShouldBeTrue)
		}

		Convey("Stop on a stopped ensemble does nothing", func() {
			So(e.Stop(), ShouldBeNil)
		})

		Convey("It can be started later", func() {
			So(e.Start(), ShouldBeNil)
			So(e.IsRunning(), ShouldBeTrue)
			So(e.Start(), ShouldBeNil)

			So(e.Stop(), ShouldBeNil)
			So(e.IsRunning(), ShouldBeFalse)
			for _, inst := range e.Instances() {
				So(inst.IsRunning(), ShouldBeFalse)
			}
		})
	})
}

func TestDeployNewRepeatedly(t *testing.T) {
	Convey("Deploy and dispose the same layout twice", t, func() {
		base := t.TempDir()
		for round := 0; round < 2; round++ {
			s := testSettings(t, 3)
			s.BaseDirectory = base
			e, err := DeployNew(s, testLogger(t), true)
			So(err, ShouldBeNil)
			So(e.IsRunning(), ShouldBeTrue)
			So(e.Dispose(), ShouldBeNil)
			for _, inst := range e.Instances() {
				So(dirExists(inst.BaseDirectory()), ShouldBeFalse)
			}
		}
	})
}

func TestInstancesStopAndStart(t *testing.T) {
	for index := 0; index < 3; index++ {
		Convey(fmt.Sprintf("Stop and start instance %d of 3", index), t, func() {
			e, err := DeployNew(testSettings(t, 3), testLogger(t), true)
			So(err, ShouldBeNil)
			defer e.Dispose()

			inst := e.Instances()[index]
			So(inst.IsRunning(), ShouldBeTrue)
			inst.Stop()
			So(inst.IsRunning(), ShouldBeFalse)
			for n, other := range e.Instances() {
				if n != index {
					So(other.IsRunning(), ShouldBeTrue)
				}
			}
			So(inst.Start(), ShouldBeNil)
			So(inst.IsRunning(), ShouldBeTrue)
		})
	}
}

func TestEnsembleSettings(t *testing.T) {
	Convey("Explicit client ports are used in order", t, func() {
		ps := newPortSet(nil)
		var ports []int
		for i := 0; i < 3; i++ {
			p, err := ps.allocate()
			So(err, ShouldBeNil)
			ports = append(ports, p)
		}
		s := testSettings(t, 3)
		s.InstancesPorts = append([]int{}, ports...)
		e, err := DeployNew(s, testLogger(t), true)
		So(err, ShouldBeNil)
		defer e.Dispose()

		for n, inst := range e.Instances() {
			So(inst.ClientPort(), ShouldEqual, ports[n])
			So(inst.PeerPort(), ShouldNotEqual, ports[n])
		}

		Convey("Changing the caller's settings has no effect", func() {
			s.InstancesPorts[0] = 1
			s.Size = 9
			So(e.Instances()[0].ClientPort(), ShouldEqual, ports[0])
			So(e.Settings().Size, ShouldEqual, 3)
			So(e.Settings().InstancesPorts[0], ShouldEqual, ports[0])
		})
	})

	Convey("Ids start where asked", t, func() {
		s := testSettings(t, 2)
		s.StartingID = 5
		e, err := New(s, testLogger(t))
		So(err, ShouldBeNil)
		So(e.Instances()[0].ID(), ShouldEqual, 5)
		So(e.Instances()[1].ID(), ShouldEqual, 6)
		So(e.Instances()[1].Name(), ShouldEqual, "ZK-6")

		inst, err := e.Instance(6)
		So(err, ShouldBeNil)
		So(inst.ID(), ShouldEqual, 6)
		_, err = e.Instance(1)
		So(err, ShouldEqual, ErrNoInstance)
	})

	Convey("The hostname is advertised, not dialed", t, func() {
		s := testSettings(t, 2)
		s.Hostname = "zk.test"
		e, err := DeployNew(s, testLogger(t), true)
		So(err, ShouldBeNil)
		defer e.Dispose()

		for _, addr := range strings.Split(e.ConnectionString(), ",") {
			So(strings.HasPrefix(addr, "zk.test:"), ShouldBeTrue)
		}
		cfg, err := os.ReadFile(e.Instances()[0].ConfigFile())
		So(err, ShouldBeNil)
		So(string(cfg), ShouldContainSubstring, "server.2=zk.test:")
	})

	Convey("Separate ensembles get disjoint ports", t, func() {
		a, err := New(testSettings(t, 3), testLogger(t))
		So(err, ShouldBeNil)
		b, err := New(testSettings(t, 3), testLogger(t))
		So(err, ShouldBeNil)
		So(a.Name(), ShouldNotEqual, b.Name())
		seen := make(map[string]bool)
		for _, addr := range strings.Split(a.ConnectionString(), ",") {
			seen[addr] = true
		}
		for _, addr := range strings.Split(b.ConnectionString(), ",") {
			So(seen[addr], ShouldBeFalse)
		}
	})

	Convey("Invalid settings are rejected before anything happens", t, func() {
		s := testSettings(t, 3)
		s.InstancesPorts = []int{20001}
		e, err := DeployNew(s, testLogger(t), true)
		So(e, ShouldBeNil)
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)

		_, err = New(nil, nil)
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)

		_, err = DeployNewSize(0, testLogger(t))
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)

		_, err = DeployNewFrom(5, 0, testLogger(t))
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)

		_, err = DeployNewFrom(-1, 1, testLogger(t))
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
	})
}

func TestDeployFailures(t *testing.T) {
	Convey("A client port that is already taken", t, func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer l.Close()
		taken := l.Addr().(*net.TCPAddr).Port

		s := testSettings(t, 1)
		s.InstancesPorts = []int{taken}
		s.StartTimeout = time.Second * 3
		e, err := DeployNew(s, testLogger(t), true)
		So(e, ShouldBeNil)
		So(errors.Is(err, ErrProcessStart), ShouldBeTrue)

		Convey("Leaves nothing behind", func() {
			So(dirExists(filepath.Join(s.BaseDirectory, "ZK-1")), ShouldBeFalse)
		})
	})

	Convey("Starting with one client port taken", t, func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer l.Close()
		taken := l.Addr().(*net.TCPAddr).Port
		free, err := newPortSet([]int{taken}).allocate()
		So(err, ShouldBeNil)

		s := testSettings(t, 2)
		s.InstancesPorts = []int{free, taken}
		s.StartTimeout = time.Second * 3
		e, err := DeployNew(s, testLogger(t), false)
		So(err, ShouldBeNil)
		defer e.Dispose()

		err = e.Start()
		So(errors.Is(err, ErrProcessStart), ShouldBeTrue)

		Convey("Leaves no instance running", func() {
			So(e.IsRunning(), ShouldBeFalse)
			for _, inst := range e.Instances() {
				So(inst.IsRunning(), ShouldBeFalse)
			}
			So(eventually(time.Second*5, func() bool {
				return portFree(free)
			}), ShouldBeTrue)
		})
	})

	Convey("Stop reaches instances started on their own", t, func() {
		e, err := DeployNew(testSettings(t, 2), testLogger(t), false)
		So(err, ShouldBeNil)
		defer e.Dispose()

		inst := e.Instances()[1]
		So(inst.Start(), ShouldBeNil)
		So(e.IsRunning(), ShouldBeFalse)

		So(e.Stop(), ShouldBeNil)
		So(inst.IsRunning(), ShouldBeFalse)
	})

	Convey("A missing ZooKeeper installation", t, func() {
		s := testSettings(t, 2)
		s.Distribution = NewZooKeeperDistribution(filepath.Join(t.TempDir(), "nowhere"))
		e, err := DeployNew(s, testLogger(t), true)
		So(e, ShouldBeNil)
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		So(dirExists(filepath.Join(s.BaseDirectory, "ZK-1")), ShouldBeFalse)
		So(dirExists(filepath.Join(s.BaseDirectory, "ZK-2")), ShouldBeFalse)
	})
}

func TestDispose(t *testing.T) {
	Convey("Dispose a running ensemble", t, func() {
		e, err := DeployNew(testSettings(t, 3), testLogger(t), true)
		So(err, ShouldBeNil)
		insts := e.Instances()
		var servers []int
		for _, inst := range insts {
			servers = append(servers, fakeServerPid(inst))
		}

		So(e.Dispose(), ShouldBeNil)
		So(e.IsDisposed(), ShouldBeTrue)
		So(e.IsRunning(), ShouldBeFalse)
		for n, inst := range insts {
			So(inst.IsRunning(), ShouldBeFalse)
			So(dirExists(inst.BaseDirectory()), ShouldBeFalse)
			pid := servers[n]
			So(eventually(time.Second*5, func() bool {
				return !pidAlive(pid)
			}), ShouldBeTrue)
		}

		Convey("Disposing again does nothing", func() {
			So(e.Dispose(), ShouldBeNil)
		})

		Convey("Everything else is refused", func() {
			So(e.Start(), ShouldEqual, ErrDisposed)
			So(e.Stop(), ShouldEqual, ErrDisposed)
			So(e.Deploy(true), ShouldEqual, ErrDisposed)
		})
	})

	Convey("Concurrent disposal runs once", t, func() {
		e, err := DeployNew(testSettings(t, 2), testLogger(t), true)
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = e.Dispose()
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			So(err, ShouldBeNil)
		}
		So(e.IsDisposed(), ShouldBeTrue)
		for _, inst := range e.Instances() {
			So(inst.IsRunning(), ShouldBeFalse)
			So(dirExists(inst.BaseDirectory()), ShouldBeFalse)
		}
	})

	Convey("Dispose stops individually started instances", t, func() {
		e, err := DeployNew(testSettings(t, 2), testLogger(t), false)
		So(err, ShouldBeNil)
		inst := e.Instances()[1]
		So(inst.Start(), ShouldBeNil)
		So(e.IsRunning(), ShouldBeFalse)

		So(e.Dispose(), ShouldBeNil)
		So(inst.IsRunning(), ShouldBeFalse)
	})
}

func TestEnsembleEvents(t *testing.T) {
	Convey("State changes are observable", t, func() {
		e, err := DeployNew(testSettings(t, 1), testLogger(t), false)
		So(err, ShouldBeNil)
		defer e.Dispose()

		serial := e.Serial()
		So(e.WatchSerial(serial, 0), ShouldEqual, serial)

		done := make(chan int64, 1)
		go func() {
			done <- e.WatchSerial(serial, time.Second*10)
		}()
		So(e.Start(), ShouldBeNil)
		So(<-done, ShouldNotEqual, serial)

		info := e.GetInfo()
		So(info.Running, ShouldBeTrue)
		So(info.Size, ShouldEqual, 1)
		So(info.ConnectionString, ShouldEqual, e.ConnectionString())

		recs, _ := e.GetLog(0)
		var text []string
		for _, r := range recs {
			text = append(text, r.Text)
		}
		joined := strings.Join(text, "\n")
		So(joined, ShouldContainSubstring, "Created instances")
		So(joined, ShouldContainSubstring, "Started successfully!")
	})
}
