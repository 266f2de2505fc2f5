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
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	cleanupRetries  = 3
	cleanupInterval = time.Millisecond * 500
)

// deployInstance lays out a fresh instance tree.  Whatever was at the base
// directory before is removed first.
func deployInstance(inst *Instance, config, logConfig string, dist Distribution) error {
	if e := os.RemoveAll(inst.BaseDirectory()); e != nil {
		return e
	}
	for _, dir := range []string{
		inst.BaseDirectory(),
		inst.BinDirectory(),
		inst.LibDirectory(),
		inst.ConfDirectory(),
		inst.DataDirectory(),
	} {
		if e := os.MkdirAll(dir, 0755); e != nil {
			return e
		}
	}
	files := []struct {
		path string
		body string
	}{
		{inst.ConfigFile(), config},
		{inst.LogConfigFile(), logConfig},
		{inst.MyIDFile(), generateMyID(inst)},
	}
	for _, f := range files {
		if e := os.WriteFile(f.path, []byte(f.body), 0644); e != nil {
			return e
		}
	}
	return dist.Deploy(inst)
}

// cleanupInstance removes the instance tree.  A killed server can hold
// files open for a moment after it dies (Windows refuses to delete them),
// so removal is retried a few times before giving up.
func cleanupInstance(inst *Instance) error {
	dir := inst.BaseDirectory()
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(cleanupInterval), cleanupRetries)
	e := backoff.RetryNotify(func() error {
		return os.RemoveAll(dir)
	}, b, func(e error, _ time.Duration) {
		inst.logger.Debug("Retrying removal of " + dir + ": " + e.Error())
	})
	if e != nil {
		return &CleanupError{Path: dir, Err: e}
	}
	return nil
}
