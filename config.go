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
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Server tuning shared by every instance.
const (
	TickTime       = 2000
	InitLimit      = 10
	SyncLimit      = 10
	MaxClientCnxns = 0

	// The server runs with bin/ as its working directory.
	dataDirRef = "../data"
)

// memberList renders the cluster membership block, one server line per
// instance in instance order.
func memberList(instances []*Instance) string {
	var b strings.Builder
	for _, inst := range instances {
		fmt.Fprintf(&b, "server.%d=%s:%d:%d\n",
			inst.ID(), inst.Hostname(), inst.PeerPort(), inst.ElectionPort())
	}
	return b.String()
}

// GenerateConfigs returns the zoo.cfg text for each instance, in order.
// The output depends only on the instances' ids, hostnames and ports, so
// the same descriptors always produce the same bytes.
func GenerateConfigs(instances []*Instance) []string {
	members := memberList(instances)
	configs := make([]string, len(instances))
	for i, inst := range instances {
		var b strings.Builder
		fmt.Fprintf(&b, "tickTime=%d\n", TickTime)
		fmt.Fprintf(&b, "initLimit=%d\n", InitLimit)
		fmt.Fprintf(&b, "syncLimit=%d\n", SyncLimit)
		fmt.Fprintf(&b, "dataDir=%s\n", dataDirRef)
		fmt.Fprintf(&b, "clientPort=%d\n", inst.ClientPort())
		b.WriteString(members)
		fmt.Fprintf(&b, "maxClientCnxns=%d\n", MaxClientCnxns)
		configs[i] = b.String()
	}
	return configs
}

// generateLogConfig returns the log4j.properties routing the server log to
// a rolling file named after the instance.  logsDir may be empty, in which
// case the file goes to the instance base directory.
func generateLogConfig(inst *Instance, logsDir string) string {
	file := path.Join("..", inst.Name()+".log")
	if logsDir != "" {
		file = filepath.ToSlash(filepath.Join(logsDir, inst.Name()+".log"))
	}
	lines := []string{
		"log4j.rootLogger=DEBUG, ROLLINGFILE",
		"log4j.appender.ROLLINGFILE=org.apache.log4j.RollingFileAppender",
		"log4j.appender.ROLLINGFILE.File=" + file,
		"log4j.appender.ROLLINGFILE.Threshold=DEBUG",
		"log4j.appender.ROLLINGFILE.layout=org.apache.log4j.PatternLayout",
		"log4j.appender.ROLLINGFILE.layout.ConversionPattern=[myid:%X{myid}] - %d %-5p [%t:%C{1}@%L] - %m%n",
	}
	return strings.Join(lines, "\n") + "\n"
}

// generateMyID returns the content of data/myid.
func generateMyID(inst *Instance) string {
	return strconv.Itoa(inst.ID())
}
