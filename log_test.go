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
	"bytes"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLog(t *testing.T) {
	Convey("A log keeps the newest lines", t, func() {
		l := NewLogSize(3)
		recs, id := l.GetRecords(0)
		So(len(recs), ShouldEqual, 0)

		fmt.Fprintf(l, "one\ntwo\n")
		recs, id2 := l.GetRecords(id)
		So(id2, ShouldNotEqual, id)
		So(len(recs), ShouldEqual, 2)
		So(recs[0].Text, ShouldEqual, "one")
		So(recs[1].Text, ShouldEqual, "two")
		So(recs[1].Id, ShouldBeGreaterThan, recs[0].Id)

		Convey("Unchanged logs return nothing", func() {
			recs, id3 := l.GetRecords(id2)
			So(recs, ShouldBeNil)
			So(id3, ShouldEqual, id2)
		})

		Convey("Old lines are dropped", func() {
			fmt.Fprintf(l, "three\nfour\n")
			So(l.Lines(), ShouldResemble, []string{"two", "three", "four"})
		})
	})

	Convey("Watching a log", t, func() {
		l := NewLog()
		_, id := l.GetRecords(0)

		Convey("Times out when nothing happens", func() {
			start := time.Now()
			So(l.Watch(id, time.Millisecond*50), ShouldEqual, id)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, time.Millisecond*50)
		})

		Convey("Wakes on a write", func() {
			time.AfterFunc(time.Millisecond*20, func() {
				fmt.Fprintln(l, "hello")
			})
			So(l.Watch(id, time.Second*5), ShouldNotEqual, id)
		})

		Convey("Polls with a zero expiry", func() {
			So(l.Watch(id, 0), ShouldEqual, id)
		})
	})
}

func TestMultiLogger(t *testing.T) {
	Convey("A multilogger fans lines out", t, func() {
		m := NewMultiLogger()
		l := NewLog()
		var buf bytes.Buffer
		m.AddWriter(l)
		m.AddWriter(&buf)

		m.Logger().Print("stdout> first")
		m.Logger().Print("stdout> second")
		So(l.Lines(), ShouldResemble, []string{"stdout> first", "stdout> second"})
		So(buf.String(), ShouldEqual, "stdout> first\nstdout> second\n")

		Convey("Adding a logger twice is harmless", func() {
			x := log.New(&buf, "", 0)
			m.AddLogger(x)
			m.AddLogger(x)
			buf.Reset()
			m.Logger().Print("once")
			So(buf.String(), ShouldEqual, "once\nonce\n")
		})
	})

	Convey("A debug writer feeds a Logger", t, func() {
		var buf bytes.Buffer
		w := debugWriter{logger: NewLogger(log.New(&buf, "", 0), true)}
		fmt.Fprintf(w, "a\nb\n")
		So(buf.String(), ShouldEqual, "DEBUG a\nDEBUG b\n")
	})
}

func TestLoggers(t *testing.T) {
	Convey("The standard logger adapter", t, func() {
		var buf bytes.Buffer
		logger := NewLogger(log.New(&buf, "", 0), false)

		logger.Info("hello")
		logger.Debug("hidden")
		logger.ForContext("ZK-1").Error(fmt.Errorf("boom"), "failed")
		So(buf.String(), ShouldEqual, "INFO  hello\nERROR [ZK-1] failed: boom\n")
	})

	Convey("Nested contexts are joined", t, func() {
		var buf bytes.Buffer
		logger := NewLogger(log.New(&buf, "", 0), true)
		logger.ForContext("ZKEnsemble").ForContext("ZK-2").Debug("x")
		So(buf.String(), ShouldEqual, "DEBUG [ZKEnsemble.ZK-2] x\n")
	})
}

func TestHclogLogger(t *testing.T) {
	Convey("The hclog adapter keeps levels and names", t, func() {
		var buf bytes.Buffer
		logger := NewHclogLogger(hclog.New(&hclog.LoggerOptions{
			Name:   "zkensemble",
			Output: &buf,
			Level:  hclog.Info,
		}))
		logger.ForContext("ZK-3").Info("started")
		logger.Debug("hidden")
		logger.Error(fmt.Errorf("boom"), "failed")

		out := buf.String()
		So(out, ShouldContainSubstring, "[INFO]  zkensemble.ZK-3: started")
		So(out, ShouldNotContainSubstring, "hidden")
		So(out, ShouldContainSubstring, "failed: error=boom")
	})
}
