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
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAllocateFreePort(t *testing.T) {
	Convey("Allocate a free port", t, func() {
		p, e := AllocateFreePort()
		So(e, ShouldBeNil)
		So(p, ShouldBeGreaterThan, 0)
		So(p, ShouldBeLessThanOrEqualTo, 65535)

		Convey("The port can be bound afterwards", func() {
			l, e := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(p))
			So(e, ShouldBeNil)
			l.Close()
		})
	})
}

func TestPortSet(t *testing.T) {
	Convey("A port set never hands out the same port twice", t, func() {
		ps := newPortSet(nil)
		seen := make(map[int]bool)
		for i := 0; i < 30; i++ {
			p, e := ps.allocate()
			So(e, ShouldBeNil)
			So(seen[p], ShouldBeFalse)
			seen[p] = true
		}
	})

	Convey("Reserved ports are skipped", t, func() {
		p, e := AllocateFreePort()
		So(e, ShouldBeNil)
		ps := newPortSet([]int{p})
		for i := 0; i < 10; i++ {
			q, e := ps.allocate()
			So(e, ShouldBeNil)
			So(q, ShouldNotEqual, p)
		}
	})

	Convey("Allocation errors are typed", t, func() {
		e := error(&PortAllocationError{Err: errors.New("no ports")})
		So(errors.Is(e, ErrPortAllocation), ShouldBeTrue)
		So(e.Error(), ShouldContainSubstring, "no ports")
	})
}
