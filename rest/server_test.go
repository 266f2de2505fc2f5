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


package rest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/context"

	"github.com/govisor/zkensemble"
	"github.com/govisor/zkensemble/zkensembletest"
)

func TestMain(m *testing.M) {
	zkensembletest.Main()
	os.Exit(m.Run())
}

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

func testEnsemble(t *testing.T, size int, start bool) *zkensemble.Ensemble {
	e, err := zkensemble.DeployNew(zkensembletest.Settings(t.TempDir(), size),
		zkensemble.NewWriterLogger(&testLog{t: t}, true), start)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRestEnsemble(t *testing.T) {
	Convey("Serve a stopped ensemble", t, func() {
		e := testEnsemble(t, 2, false)
		defer e.Dispose()
		srv := httptest.NewServer(NewHandler(e))
		defer srv.Close()
		c := NewClient(nil, srv.URL)

		info, err := c.Ensemble()
		So(err, ShouldBeNil)
		So(info.Name, ShouldEqual, e.Name())
		So(info.Size, ShouldEqual, 2)
		So(info.Running, ShouldBeFalse)
		So(info.ConnectionString, ShouldEqual, e.ConnectionString())
		So(len(info.Topology), ShouldEqual, 2)
		So(strings.HasPrefix(info.Topology[0], "tcp://localhost:"), ShouldBeTrue)

		ids, err := c.Instances()
		So(err, ShouldBeNil)
		So(ids, ShouldResemble, []int{1, 2})

		Convey("Start and stop it remotely", func() {
			So(c.StartEnsemble(), ShouldBeNil)
			So(e.IsRunning(), ShouldBeTrue)
			info, err := c.Ensemble()
			So(err, ShouldBeNil)
			So(info.Running, ShouldBeTrue)

			So(c.StopEnsemble(), ShouldBeNil)
			So(e.IsRunning(), ShouldBeFalse)
		})

		Convey("Watch wakes on a state change", func() {
			etag, err := c.Watch(context.Background(), "")
			So(err, ShouldBeNil)
			So(etag, ShouldNotEqual, "")

			time.AfterFunc(time.Millisecond*100, func() { e.Start() })
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
			defer cancel()
			next, err := c.Watch(ctx, etag)
			So(err, ShouldBeNil)
			So(next, ShouldNotEqual, etag)
		})

		Convey("The event log is served", func() {
			l, err := c.GetLog(0)
			So(err, ShouldBeNil)
			So(len(l.Records), ShouldBeGreaterThan, 0)
			So(l.Records[0].Text, ShouldContainSubstring, "Created instances")
		})
	})
}

func TestRestInstances(t *testing.T) {
	Convey("Serve a running ensemble", t, func() {
		e := testEnsemble(t, 3, true)
		defer e.Dispose()
		srv := httptest.NewServer(NewHandler(e))
		defer srv.Close()
		c := NewClient(nil, srv.URL)

		info, err := c.GetInstance(2)
		So(err, ShouldBeNil)
		So(info.ID, ShouldEqual, 2)
		So(info.Name, ShouldEqual, "ZK-2")
		So(info.Running, ShouldBeTrue)
		So(info.Healthy, ShouldBeTrue)
		So(info.Status, ShouldEqual, zkensemble.StatusRunning)
		So(info.Pid, ShouldBeGreaterThan, 0)

		Convey("Unknown instances are not found", func() {
			_, err := c.GetInstance(9)
			So(err, ShouldNotBeNil)
			So(err.(*Error).Code, ShouldEqual, http.StatusNotFound)
			So(c.StopInstance(9), ShouldNotBeNil)
		})

		Convey("Stop, start and restart an instance", func() {
			So(c.StopInstance(2), ShouldBeNil)
			inst, _ := e.Instance(2)
			So(inst.IsRunning(), ShouldBeFalse)

			info, err := c.GetInstance(2)
			So(err, ShouldBeNil)
			So(info.Running, ShouldBeFalse)
			So(info.Healthy, ShouldBeFalse)

			So(c.StartInstance(2), ShouldBeNil)
			So(inst.IsRunning(), ShouldBeTrue)

			pid := inst.Pid()
			So(c.RestartInstance(2), ShouldBeNil)
			So(inst.IsRunning(), ShouldBeTrue)
			So(inst.Pid(), ShouldNotEqual, pid)
		})

		Convey("Unchanged instances come from the cache", func() {
			again, err := c.GetInstance(2)
			So(err, ShouldBeNil)
			So(again.ID, ShouldEqual, 2)
		})

		Convey("Instance output is served", func() {
			l, err := c.GetLog(1)
			So(err, ShouldBeNil)
			var text []string
			for _, r := range l.Records {
				text = append(text, r.Text)
			}
			So(strings.Join(text, "\n"), ShouldContainSubstring, "binding to port")
		})

		Convey("Metrics describe the instances", func() {
			res, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer res.Body.Close()
			b, _ := io.ReadAll(res.Body)
			body := string(b)
			So(body, ShouldContainSubstring, `zkensemble_instance_up{ensemble="`+e.Name()+`",id="1"} 1`)
			So(body, ShouldContainSubstring, "zkensemble_instance_starts_total")
			So(body, ShouldContainSubstring, "zkensemble_running")
		})
	})
}

func TestRestAuth(t *testing.T) {
	Convey("Require basic auth", t, func() {
		e := testEnsemble(t, 1, false)
		defer e.Dispose()
		h := NewHandler(e)
		a, err := NewAuthenticator("admin", "secret")
		So(err, ShouldBeNil)
		h.RequireAuth(a)
		srv := httptest.NewServer(h)
		defer srv.Close()

		Convey("Anonymous requests are refused", func() {
			_, err := NewClient(nil, srv.URL).Ensemble()
			So(err, ShouldNotBeNil)
			So(err.(*Error).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Wrong passwords are refused", func() {
			c := NewClient(nil, srv.URL)
			c.SetAuth("admin", "guess")
			_, err := c.Ensemble()
			So(err, ShouldNotBeNil)
		})

		Convey("The right password works", func() {
			c := NewClient(nil, srv.URL)
			c.SetAuth("admin", "secret")
			info, err := c.Ensemble()
			So(err, ShouldBeNil)
			So(info.Size, ShouldEqual, 1)
		})
	})
}
