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


// Command zkensembled deploys a local ZooKeeper ensemble, keeps it running
// and serves it over HTTP until it is told to stop, at which point every
// server is killed and its directory removed.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/govisor/zkensemble"
	"github.com/govisor/zkensemble/rest"
)

var addr string = "127.0.0.1:8321"
var file string
var size int = 3
var startID int = zkensemble.DefaultStartingID
var dir string
var logsDir string
var hostname string
var zkHome string
var creds string
var start bool = true
var verbose bool

func loadSettings() (*zkensemble.Settings, error) {
	var s *zkensemble.Settings
	if file != "" {
		f, e := os.Open(file)
		if e != nil {
			return nil, e
		}
		defer f.Close()
		if s, e = zkensemble.LoadSettings(f, filepath.Ext(file)); e != nil {
			return nil, fmt.Errorf("%s: %w", file, e)
		}
	} else {
		s = zkensemble.NewSettings(size)
	}

	// Flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			s.Size = size
		case "i":
			s.StartingID = startID
		case "d":
			s.BaseDirectory = dir
		case "l":
			s.LogsDirectory = logsDir
		case "host":
			s.Hostname = hostname
		case "zk":
			s.ZooKeeperHome = zkHome
		}
	})
	return s, nil
}

func main() {
	flag.StringVar(&addr, "a", addr, "listen address")
	flag.StringVar(&file, "f", file, "settings file (.json or .yaml)")
	flag.IntVar(&size, "n", size, "number of instances")
	flag.IntVar(&startID, "i", startID, "id of the first instance")
	flag.StringVar(&dir, "d", dir, "base directory for instances")
	flag.StringVar(&logsDir, "l", logsDir, "directory for server logs")
	flag.StringVar(&hostname, "host", hostname, "hostname to advertise")
	flag.StringVar(&zkHome, "zk", zkHome, "ZooKeeper installation (default $ZOOKEEPER_HOME)")
	flag.StringVar(&creds, "u", creds, "require basic auth as user:password")
	flag.BoolVar(&start, "s", start, "start instances after deploying")
	flag.BoolVar(&verbose, "v", verbose, "log debug messages")
	flag.Parse()

	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	hl := hclog.New(&hclog.LoggerOptions{
		Name:   "zkensembled",
		Level:  level,
		Output: os.Stderr,
	})

	settings, e := loadSettings()
	if e != nil {
		hl.Error("Failed to load settings", "error", e)
		os.Exit(1)
	}
	ens, e := zkensemble.DeployNew(settings, zkensemble.NewHclogLogger(hl), start)
	if e != nil {
		hl.Error("Failed to deploy ensemble", "error", e)
		os.Exit(1)
	}

	h := rest.NewHandler(ens)
	h.Metrics().Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if creds != "" {
		user, pass, _ := strings.Cut(creds, ":")
		a, e := rest.NewAuthenticator(user, pass)
		if e != nil {
			hl.Error("Failed to set up authentication", "error", e)
			ens.Dispose()
			os.Exit(1)
		}
		h.RequireAuth(a)
	}

	srv := &http.Server{Addr: addr, Handler: h}
	sigs := make(chan os.Signal, 1)
	done := make(chan bool, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		if e := srv.ListenAndServe(); e != nil && e != http.ErrServerClosed {
			hl.Error("HTTP server failed", "error", e)
			done <- false
		}
	}()

	// Set up a handler, so that we shutdown cleanly if possible.
	go func() {
		<-sigs
		done <- true
	}()

	hl.Info("Ensemble ready", "name", ens.Name(), "listen", addr)
	fmt.Println(ens.ConnectionString())

	// Wait for a termination signal, and shutdown cleanly if we get it.
	clean := <-done
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	srv.Shutdown(ctx)
	cancel()
	if e := ens.Dispose(); e != nil {
		hl.Error("Dispose failed", "error", e)
		os.Exit(1)
	}
	if !clean {
		os.Exit(1)
	}
}
