//go:build !plan9

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

package main

import (
	"github.com/hashicorp/go-hclog"

	"github.com/govisor/zkensemble/rest"
	"github.com/govisor/zkensemble/zkensemble/ui"
)

func doUI(client *rest.Client, url string, logger hclog.Logger) {
	app := ui.NewApp(client, url)
	app.SetLogger(logger)
	app.Run()
}

/*
   Our screen has the following appearance:

    http://127.0.0.1:8321/                                    ZooKeeper Ensemble
    zk-6f1c... 3 Instances  1 Faulted  2 Running  0 Stopped
   ____________________________________________________________________________
   ZK-2   127.0.0.1:40111:40112:40113  failed    0:00:04   Failed
   ZK-1   127.0.0.1:40101:40102:40103  running   0:10:32   Running
   ZK-3   127.0.0.1:40121:40122:40123  running   0:10:31   Running
   ____________________________________________________________________________
   [Q] Quit [H] Help [I] Info [L] Log [S] Start [T] Stop [R] Restart
*/
