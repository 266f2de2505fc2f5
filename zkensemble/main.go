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

// Command zkensemble is a client for zkensembled.  It uses subcommands.
//
// The flags are
//
//	-a <address>	- daemon address, default is http://127.0.0.1:8321
//	-u <user:pass>	- user name & password for basic auth
//	-l <file>	- write a debug log of the user interface to file
//
// Subcommands are
//
//	info                - show the ensemble summary
//	instances           - list instance ids
//	status [<id> ...]   - show status for the given instances (or all)
//	start [<id>]        - start an instance, or the whole ensemble
//	stop [<id>]         - stop an instance, or the whole ensemble
//	restart <id>        - restart an instance
//	log [<id>]          - print an instance log, or the ensemble events
//	connstr             - print the client connection string
//	ui                  - full screen user interface (the default)
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/govisor/zkensemble/rest"
	"github.com/govisor/zkensemble/zkensemble/util"
)

var addr string = "http://127.0.0.1:8321"
var auth string = ""
var logFile string = ""

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func showStatus(s *rest.InstanceInfo) {
	d := time.Since(s.TimeStamp)
	// for printing second resolution is sufficient
	d -= d % time.Second
	fmt.Printf("%6s %-18s %10s %10s %s\n", s.Name, util.Ports(s),
		util.Status(s), d.String(), s.Status)
}

func parseID(arg string) int {
	id, e := strconv.Atoi(arg)
	if e != nil || id <= 0 {
		log.Fatalf("Bad instance id: %s", arg)
	}
	return id
}

// optionalID returns the single optional instance id argument, or 0.
func optionalID(args []string) int {
	switch len(args) {
	case 1:
		return 0
	case 2:
		return parseID(args[1])
	}
	usage()
	return 0
}

func uiLogger() hclog.Logger {
	if logFile == "" {
		return hclog.NewNullLogger()
	}
	f, e := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if e != nil {
		log.Fatalf("Cannot open log: %v", e)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "zkensemble-ui",
		Level:  hclog.Debug,
		Output: f,
	})
}

func main() {
	flag.StringVar(&addr, "a", addr, "zkensembled address")
	flag.StringVar(&auth, "u", auth, "user:pass authentication")
	flag.StringVar(&logFile, "l", logFile, "user interface debug log")
	flag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"ui"}
	}

	switch args[0] {
	case "info":
		if len(args) != 1 {
			usage()
		}
		s, e := client.Ensemble()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		state := "stopped"
		if s.Disposed {
			state = "disposed"
		} else if s.Running {
			state = "running"
		}
		fmt.Printf("Name:      %s\n", s.Name)
		fmt.Printf("Size:      %d\n", s.Size)
		fmt.Printf("Status:    %s\n", state)
		fmt.Printf("Since:     %v\n", time.Since(s.UpdateTime))
		fmt.Printf("Connect:   %s\n", s.ConnectionString)
		fmt.Printf("Topology: ")
		for _, u := range s.Topology {
			fmt.Printf(" %s", u)
		}
		fmt.Printf("\n")

	case "instances":
		if len(args) != 1 {
			usage()
		}
		ids, e := client.Instances()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, id := range ids {
			fmt.Println(id)
		}

	case "connstr":
		if len(args) != 1 {
			usage()
		}
		s, e := client.Ensemble()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		fmt.Println(s.ConnectionString)

	case "start":
		var e error
		if id := optionalID(args); id == 0 {
			e = client.StartEnsemble()
		} else {
			e = client.StartInstance(id)
		}
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}

	case "stop":
		var e error
		if id := optionalID(args); id == 0 {
			e = client.StopEnsemble()
		} else {
			e = client.StopInstance(id)
		}
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}

	case "restart":
		if len(args) != 2 {
			usage()
		}
		e := client.RestartInstance(parseID(args[1]))
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}

	case "log":
		s, e := client.GetLog(optionalID(args))
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, r := range s.Records {
			fmt.Printf("%s %s\n", r.Time.Format(time.StampMilli), r.Text)
		}

	case "status":
		var ids []int
		var e error
		if len(args) == 1 {
			ids, e = client.Instances()
			if e != nil {
				log.Fatalf("Failed: %v", e)
			}
		}
		for _, a := range args[1:] {
			ids = append(ids, parseID(a))
		}
		infos := []*rest.InstanceInfo{}
		for _, id := range ids {
			info, e := client.GetInstance(id)
			if e == nil {
				infos = append(infos, info)
			} else {
				log.Printf("Failed: %v", e)
			}
		}
		util.SortInstances(infos)
		for _, info := range infos {
			showStatus(info)
		}

	case "ui":
		doUI(client, addr, uiLogger())

	default:
		usage()
	}
}
