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
	"strings"
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000
)

type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log keeps the most recent lines written to it.  Each instance has one
// holding the server's stdout and stderr, and the ensemble has one for its
// own lifecycle events.  It is safe for concurrent use.
type Log struct {
	records []LogRecord
	next    int // total lines ever written
	id      int64
	mx      sync.Mutex
	cv      *sync.Cond
}

// Write implements io.Writer, one record per line.
func (l *Log) Write(b []byte) (int, error) {
	str := strings.TrimRight(string(b), "\n")
	now := time.Now()
	l.mx.Lock()
	for _, line := range strings.Split(str, "\n") {
		l.id++
		l.records[l.next%len(l.records)] = LogRecord{
			Id:   l.id,
			Time: now,
			Text: line,
		}
		l.next++
	}
	l.cv.Broadcast()
	l.mx.Unlock()
	return len(b), nil
}

// GetRecords returns the retained records, oldest first, and an id that
// changes whenever the log does.  If last equals that id nothing changed
// and nil is returned; the id is suitable as an HTTP Etag.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.id == last {
		return nil, last
	}
	cnt := l.next
	if cnt > len(l.records) {
		cnt = len(l.records)
	}
	recs := make([]LogRecord, 0, cnt)
	for j := l.next - cnt; j < l.next; j++ {
		recs = append(recs, l.records[j%len(l.records)])
	}
	return recs, l.id
}

// Lines is GetRecords without the bookkeeping.
func (l *Log) Lines() []string {
	recs, _ := l.GetRecords(0)
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, r.Text)
	}
	return lines
}

// Watch blocks until the log id differs from last or expire passes, and
// returns the current id.  An expire of zero polls.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	expired := expire <= 0
	var timer *time.Timer
	if !expired {
		timer = time.AfterFunc(expire, func() {
			l.mx.Lock()
			expired = true
			l.cv.Broadcast()
			l.mx.Unlock()
		})
	}

	l.mx.Lock()
	for l.id == last && !expired {
		l.cv.Wait()
	}
	last = l.id
	l.mx.Unlock()

	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewLog returns a Log retaining up to MaxLogRecords lines.
func NewLog() *Log {
	return NewLogSize(MaxLogRecords)
}

// NewLogSize returns a Log retaining up to size lines.
func NewLogSize(size int) *Log {
	if size < 1 {
		size = 1
	}
	l := &Log{
		records: make([]LogRecord, size),
		// Starting from the clock keeps ids from repeating across
		// restarts of a daemon, which matters to clients caching Etags.
		id: time.Now().UnixNano(),
	}
	l.cv = sync.NewCond(&l.mx)
	return l
}
