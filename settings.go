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
	"encoding/json"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHostname     = "localhost"
	DefaultStartingID   = 1
	DefaultStartTimeout = time.Second * 20
	DefaultStopTimeout  = time.Second * 10
)

// Settings describes an ensemble.  Only Size is required; everything else
// has a usable default.  New copies the settings, so changing a Settings
// value after the ensemble exists has no effect on it.
type Settings struct {
	// Name identifies the ensemble in logs and over REST.  A random name
	// is generated when empty.
	Name string `json:"name" yaml:"name"`

	// Size is the number of instances.  Must be at least 1.
	Size int `json:"size" yaml:"size"`

	// StartingID is the id of the first instance.  Ids are consecutive.
	// Zero selects DefaultStartingID; ids below zero are rejected.
	StartingID int `json:"startingId" yaml:"startingId"`

	// BaseDirectory, when set, holds every instance directory.  Otherwise
	// instances are deployed to ZK-<id> in the working directory.
	BaseDirectory string `json:"baseDirectory" yaml:"baseDirectory"`

	// InstancesPorts, when set, supplies client ports in instance order.
	// Its length must equal Size.  Peer and election ports are always
	// allocated.
	InstancesPorts []int `json:"instancesPorts" yaml:"instancesPorts"`

	// LogsDirectory is where each instance's server log is written.
	// Defaults to the instance base directory.
	LogsDirectory string `json:"logsDirectory" yaml:"logsDirectory"`

	// Hostname is advertised in the connection string and the cluster
	// member list.  It does not change what the servers bind to.
	Hostname string `json:"hostname" yaml:"hostname"`

	// ZooKeeperHome is the ZooKeeper distribution the default runtime
	// copies from.  Falls back to $ZOOKEEPER_HOME.
	ZooKeeperHome string `json:"zookeeperHome" yaml:"zookeeperHome"`

	// StartTimeout bounds the health check after launching an instance.
	StartTimeout time.Duration `json:"startTimeout" yaml:"-"`

	// StopTimeout bounds the wait for a killed instance to exit.
	StopTimeout time.Duration `json:"stopTimeout" yaml:"-"`

	// Distribution deploys and launches the server.  Defaults to a
	// ZooKeeperDistribution rooted at ZooKeeperHome.
	Distribution Distribution `json:"-" yaml:"-"`
}

// NewSettings returns settings for an ensemble of the given size with
// every other field defaulted.
func NewSettings(size int) *Settings {
	return &Settings{Size: size, StartingID: DefaultStartingID}
}

// Validate checks the settings without touching the network or disk.
func (s *Settings) Validate() error {
	if s.Size < 1 {
		return &ConfigurationError{Field: "Size", Reason: "must be at least 1"}
	}
	if s.StartingID < 0 {
		return &ConfigurationError{
			Field:  "StartingID",
			Reason: "must be at least 1, or 0 for the default",
		}
	}
	if s.InstancesPorts != nil {
		if len(s.InstancesPorts) != s.Size {
			return &ConfigurationError{
				Field:  "InstancesPorts",
				Reason: "count must equal Size",
			}
		}
		seen := make(map[int]bool, len(s.InstancesPorts))
		for _, p := range s.InstancesPorts {
			if p <= 0 || p > 65535 {
				return &ConfigurationError{
					Field:  "InstancesPorts",
					Reason: "contains an invalid port",
				}
			}
			if seen[p] {
				return &ConfigurationError{
					Field:  "InstancesPorts",
					Reason: "contains a duplicate port",
				}
			}
			seen[p] = true
		}
	}
	if s.StartTimeout < 0 || s.StopTimeout < 0 {
		return &ConfigurationError{Field: "Timeout", Reason: "must not be negative"}
	}
	return nil
}

// withDefaults returns a copy with defaults filled in.  The port slice is
// copied as well, so the result shares nothing mutable with s.
func (s *Settings) withDefaults() *Settings {
	c := *s
	if c.InstancesPorts != nil {
		c.InstancesPorts = append(make([]int, 0, len(s.InstancesPorts)),
			s.InstancesPorts...)
	}
	if c.StartingID == 0 {
		c.StartingID = DefaultStartingID
	}
	if c.Hostname == "" {
		c.Hostname = DefaultHostname
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.Distribution == nil {
		c.Distribution = NewZooKeeperDistribution(c.ZooKeeperHome)
	}
	return &c
}

// LoadSettings decodes settings from r.  The format is "json" or "yaml"
// ("yml" is accepted too).  Durations are given in nanoseconds in JSON,
// matching encoding/json, and as Go duration strings in YAML.
func LoadSettings(r io.Reader, format string) (*Settings, error) {
	s := &Settings{}
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		dec := json.NewDecoder(r)
		if e := dec.Decode(s); e != nil {
			return nil, e
		}
	case "yaml", "yml":
		var m struct {
			Settings     `yaml:",inline"`
			StartTimeout string `yaml:"startTimeout"`
			StopTimeout  string `yaml:"stopTimeout"`
		}
		dec := yaml.NewDecoder(r)
		if e := dec.Decode(&m); e != nil && e != io.EOF {
			return nil, e
		}
		*s = m.Settings
		var e error
		if m.StartTimeout != "" {
			if s.StartTimeout, e = time.ParseDuration(m.StartTimeout); e != nil {
				return nil, e
			}
		}
		if m.StopTimeout != "" {
			if s.StopTimeout, e = time.ParseDuration(m.StopTimeout); e != nil {
				return nil, e
			}
		}
	default:
		return nil, ErrBadFormat
	}
	return s, nil
}
