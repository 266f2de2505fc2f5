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
	_ "embed"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Distribution is the server runtime an instance runs.  It places the
// runtime's files into a freshly created instance tree and builds the
// command that launches the server.  The command is started by the
// instance, which owns its standard streams, process group, and working
// directory.
type Distribution interface {
	// Name is used in log messages.
	Name() string

	// Deploy copies whatever the server needs into the instance
	// directories.  The directories and configuration files already
	// exist when it is called.
	Deploy(inst *Instance) error

	// Command returns an unstarted command that runs the server in the
	// foreground until it is killed.
	Command(inst *Instance) (*exec.Cmd, error)
}

//go:embed assets/zkServer.sh
var unixLauncher string

//go:embed assets/zkServer.cmd
var windowsLauncher string

// ZooKeeperDistribution runs Apache ZooKeeper from a local installation.
// Jars are copied out of the installation into each instance, so the
// installation itself is never written to.
type ZooKeeperDistribution struct {
	home string
}

// NewZooKeeperDistribution uses the installation at home, or at
// $ZOOKEEPER_HOME when home is empty.
func NewZooKeeperDistribution(home string) *ZooKeeperDistribution {
	if home == "" {
		home = os.Getenv("ZOOKEEPER_HOME")
	}
	return &ZooKeeperDistribution{home: home}
}

func (d *ZooKeeperDistribution) Name() string {
	return "zookeeper"
}

// Home returns the installation directory.
func (d *ZooKeeperDistribution) Home() string {
	return d.home
}

func (d *ZooKeeperDistribution) launcher() (name, body string) {
	if runtime.GOOS == "windows" {
		return "zkServer.cmd", strings.ReplaceAll(windowsLauncher, "\n", "\r\n")
	}
	return "zkServer.sh", unixLauncher
}

func copyFile(src, dst string) error {
	in, e := os.Open(src)
	if e != nil {
		return e
	}
	defer in.Close()
	out, e := os.Create(dst)
	if e != nil {
		return e
	}
	if _, e = io.Copy(out, in); e != nil {
		out.Close()
		return e
	}
	return out.Close()
}

// copyJars copies every file matching pattern into dir and returns the
// base names copied.
func copyJars(pattern, dir string) ([]string, error) {
	files, e := filepath.Glob(pattern)
	if e != nil {
		return nil, e
	}
	var names []string
	for _, f := range files {
		name := filepath.Base(f)
		if e := copyFile(f, filepath.Join(dir, name)); e != nil {
			return nil, e
		}
		names = append(names, name)
	}
	return names, nil
}

// Deploy copies the server jar into the base directory, its dependencies
// into lib/, and the launcher script into bin/.  Older releases keep the
// server jar at the top of the installation, newer ones keep it in lib/;
// both layouts work.
func (d *ZooKeeperDistribution) Deploy(inst *Instance) error {
	if d.home == "" {
		return &ConfigurationError{
			Field:  "ZooKeeperHome",
			Reason: "is not set and ZOOKEEPER_HOME is empty",
		}
	}
	top, e := copyJars(filepath.Join(d.home, "zookeeper-*.jar"), inst.BaseDirectory())
	if e != nil {
		return e
	}
	libs, e := copyJars(filepath.Join(d.home, "lib", "*.jar"), inst.LibDirectory())
	if e != nil {
		return e
	}
	found := len(top) > 0
	for _, name := range libs {
		if strings.HasPrefix(name, "zookeeper-") {
			found = true
		}
	}
	if !found {
		return &ConfigurationError{
			Field:  "ZooKeeperHome",
			Reason: "contains no zookeeper server jar: " + d.home,
		}
	}

	name, body := d.launcher()
	return os.WriteFile(filepath.Join(inst.BinDirectory(), name), []byte(body), 0755)
}

// classpath is relative to the bin directory.
func (d *ZooKeeperDistribution) classpath() string {
	parts := []string{
		filepath.Join("..", "*"),
		filepath.Join("..", "lib", "*"),
		filepath.Join("..", "conf"),
	}
	return strings.Join(parts, string(filepath.ListSeparator))
}

// Command runs the launcher through the shell rather than exec'ing it, so
// the script does not need its executable bit and the JVM always ends up
// as a child of the launched process.
func (d *ZooKeeperDistribution) Command(inst *Instance) (*exec.Cmd, error) {
	name, _ := d.launcher()
	script := filepath.Join(inst.BinDirectory(), name)
	if _, e := os.Stat(script); e != nil {
		return nil, e
	}
	config := filepath.Join("..", "conf", configFileName)
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd.exe", "/c", script, d.classpath(), config)
	} else {
		cmd = exec.Command("/bin/sh", script, d.classpath(), config)
	}
	cmd.Dir = inst.BinDirectory()
	return cmd, nil
}
