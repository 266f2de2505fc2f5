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

// Package zkensemble provisions throwaway ZooKeeper ensembles on the local
// machine.  It is meant for integration tests and development setups that
// need a real multi-node cluster without any infrastructure.
//
// An ensemble is a number of server instances, each living in its own
// ZK-<id> directory with its own client, peer and election ports.  The
// package lays out each directory, writes the server configuration, starts
// the servers, waits until each of them answers the "ruok" check, and on
// Dispose kills every process it started (including the JVMs forked by the
// launcher scripts) before removing the directories again.
//
//	e, err := zkensemble.DeployNewSize(3, logger)
//	if err != nil {
//		...
//	}
//	defer e.Dispose()
//	connect(e.ConnectionString())
//
// Instances can be stopped and started individually to exercise client
// failover.  The rest package exposes an ensemble over HTTP; the
// zkensembled daemon and zkensemble client build on it.
package zkensemble
