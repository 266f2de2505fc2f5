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
	"io"
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// wordListener answers every four letter word with reply.
func wordListener(reply string) (net.Listener, int) {
	l, e := net.Listen("tcp", "127.0.0.1:0")
	if e != nil {
		panic(e)
	}
	go func() {
		for {
			conn, e := l.Accept()
			if e != nil {
				return
			}
			go func() {
				defer conn.Close()
				word := make([]byte, 4)
				if _, e := io.ReadFull(conn, word); e != nil {
					return
				}
				io.WriteString(conn, reply)
			}()
		}
	}()
	return l, l.Addr().(*net.TCPAddr).Port
}

func TestHealthChecker(t *testing.T) {
	Convey("A healthy server", t, func() {
		l, port := wordListener(HealthResponse)
		defer l.Close()
		hc := NewHealthChecker(testLogger(t), "127.0.0.1", port)

		So(hc.Check(), ShouldBeNil)
		So(hc.WaitStarted(time.Second), ShouldBeTrue)

		reply, e := hc.SendFourLetterWord("ruok")
		So(e, ShouldBeNil)
		So(reply, ShouldEqual, "imok")
	})

	Convey("A server with the wrong answer", t, func() {
		l, port := wordListener("nope")
		defer l.Close()
		hc := NewHealthChecker(testLogger(t), "127.0.0.1", port)
		hc.interval = time.Millisecond * 50

		So(hc.Check(), ShouldNotBeNil)
		So(hc.WaitStarted(time.Millisecond*300), ShouldBeFalse)
	})

	Convey("Nothing listening", t, func() {
		port, e := AllocateFreePort()
		So(e, ShouldBeNil)
		hc := NewHealthChecker(testLogger(t), "127.0.0.1", port)
		hc.interval = time.Millisecond * 50

		start := time.Now()
		So(hc.WaitStarted(time.Millisecond*300), ShouldBeFalse)
		So(time.Since(start), ShouldBeLessThan, time.Second*3)
	})

	Convey("A server that comes up late", t, func() {
		port, e := AllocateFreePort()
		So(e, ShouldBeNil)
		hc := NewHealthChecker(testLogger(t), "127.0.0.1", port)
		hc.interval = time.Millisecond * 50

		ready := make(chan net.Listener, 1)
		time.AfterFunc(time.Millisecond*200, func() {
			l, e := net.Listen("tcp", hc.addr)
			if e != nil {
				ready <- nil
				return
			}
			go func() {
				for {
					conn, e := l.Accept()
					if e != nil {
						return
					}
					word := make([]byte, 4)
					io.ReadFull(conn, word)
					io.WriteString(conn, HealthResponse)
					conn.Close()
				}
			}()
			ready <- l
		})
		So(hc.WaitStarted(time.Second*5), ShouldBeTrue)
		if l := <-ready; l != nil {
			l.Close()
		}
	})
}
