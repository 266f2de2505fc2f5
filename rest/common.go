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


// Package rest exposes an ensemble over HTTP and provides a client for
// it.  Read operations return JSON and carry an Etag; a client that sends
// the Etag back in PollEtagHeader, together with a wait in seconds in
// PollTimeHeader, gets a long poll that returns as soon as anything
// changes.
package rest

import (
	"time"

	"github.com/govisor/zkensemble"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	PollEtagHeader = "X-Poll-Etag"
	PollTimeHeader = "X-Poll-Time"

	// Upper bound on a long poll, in seconds.
	maxPollTime = 300
)

var ok struct{}

type LogRecord = zkensemble.LogRecord

type EnsembleInfo struct {
	Name             string    `json:"name"`
	Size             int       `json:"size"`
	Running          bool      `json:"running"`
	Disposed         bool      `json:"disposed"`
	ConnectionString string    `json:"connectionString"`
	Topology         []string  `json:"topology"`
	Instances        []int     `json:"instances"`
	CreateTime       time.Time `json:"created"`
	UpdateTime       time.Time `json:"updated"`
	etag             string
}

type InstanceInfo struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Hostname      string    `json:"hostname"`
	ClientPort    int       `json:"clientPort"`
	PeerPort      int       `json:"peerPort"`
	ElectionPort  int       `json:"electionPort"`
	BaseDirectory string    `json:"baseDirectory"`
	Running       bool      `json:"running"`
	Healthy       bool      `json:"healthy"`
	Failed        bool      `json:"failed"`
	Reason        string    `json:"reason,omitempty"`
	Pid           int       `json:"pid"`
	Starts        int64     `json:"starts"`
	Failures      int64     `json:"failures"`
	Status        string    `json:"status"`
	TimeStamp     time.Time `json:"tstamp"`
	etag          string
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
