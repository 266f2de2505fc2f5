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


// Package zkensembletest runs ensembles without a ZooKeeper installation.
// The calling test binary is re-executed as a minimal server that binds
// the configured client port and answers ruok, which is enough
// for every lifecycle operation of the zkensemble package.
//
// A test package opts in from TestMain:
//
//	func TestMain(m *testing.M) {
//		zkensembletest.Main()
//		os.Exit(m.Run())
//	}
package zkensembletest

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/govisor/zkensemble"
)

const envServer = "ZKENSEMBLETEST_SERVER"

// Main turns the process into a fake server when it was launched as one,
// and never returns in that case.  Otherwise it does nothing.
func Main() {
	if os.Getenv(envServer) != "" {
		os.Exit(serve(os.Args[len(os.Args)-1]))
	}
}

func clientPort(config string) int {
	for _, line := range strings.Split(config, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "clientPort="); ok {
			p, _ := strconv.Atoi(v)
			return p
		}
	}
	return 0
}

func serve(config string) int {
	b, e := os.ReadFile(config)
	if e != nil {
		fmt.Fprintln(os.Stderr, e)
		return 1
	}
	port := clientPort(string(b))
	l, e := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if e != nil {
		fmt.Fprintln(os.Stderr, "bind failed:", e)
		return 1
	}
	fmt.Printf("binding to port %d\n", port)
	for {
		conn, e := l.Accept()
		if e != nil {
			return 1
		}
		go func(conn net.Conn) {
			defer conn.Close()
			conn.SetDeadline(time.Now().Add(time.Second))
			word := make([]byte, 4)
			if _, e := io.ReadFull(conn, word); e != nil {
				return
			}
			if string(word) == zkensemble.HealthCommand {
				io.WriteString(conn, zkensemble.HealthResponse)
			}
		}(conn)
	}
}

// Distribution launches the test binary in place of ZooKeeper.
type Distribution struct{}

func (Distribution) Name() string {
	return "zkensembletest"
}

func (Distribution) Deploy(inst *zkensemble.Instance) error {
	return nil
}

func (Distribution) Command(inst *zkensemble.Instance) (*exec.Cmd, error) {
	cmd := exec.Command(os.Args[0], filepath.Join("..", "conf", "zoo.cfg"))
	cmd.Dir = inst.BinDirectory()
	cmd.Env = append(os.Environ(), envServer+"=1")
	return cmd, nil
}

// Settings returns settings for an ensemble of size instances deployed
// under base and run by the fake server.
func Settings(base string, size int) *zkensemble.Settings {
	s := zkensemble.NewSettings(size)
	s.BaseDirectory = base
	s.StartTimeout = time.Second * 10
	s.StopTimeout = time.Second * 5
	s.Distribution = Distribution{}
	return s
}
