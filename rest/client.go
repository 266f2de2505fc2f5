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


package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context"
)

type LogInfo struct {
	id      int
	etag    string
	Records []LogRecord
}

// Client talks to a Handler.  It caches what it has fetched, keyed by
// Etag, so repeated Get calls are cheap and Watch calls can long poll.
type Client struct {
	user      string // HTTP Basic-Auth
	pass      string
	base      string // URI to root of tree on server
	auth      bool
	client    *http.Client
	transport *http.Transport

	// Cached data
	ensemble  *EnsembleInfo
	instances map[int]*InstanceInfo
	logs      map[int]*LogInfo
	lock      sync.Mutex
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(id int) string {
	if id == 0 {
		return c.base + "/instances"
	}
	return c.base + "/instances/" + strconv.Itoa(id)
}

// poll issues an HTTP GET against the URL, optionally checking for a cache,
// including optionally issuing a long poll that tries to wait until the
// value changes.  The return values are the new Etag and any error.  If the
// value did not change, then the returned etag will be "", but the error will
// be nil.
func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {

	req, e := http.NewRequest("GET", url, nil)
	if e != nil {
		return "", e
	}
	req = req.WithContext(ctx)
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}

	res, e := c.client.Do(req)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", readError(res)
	}
	body, e := io.ReadAll(res.Body)
	if e != nil {
		return "", e
	}
	if e := json.Unmarshal(body, v); e != nil {
		return "", e
	}
	return res.Header.Get("Etag"), nil
}

// readError turns an error response into an *Error, using the JSON body
// when the server sent one.
func readError(res *http.Response) error {
	e := &Error{}
	if b, err := io.ReadAll(res.Body); err == nil && json.Unmarshal(b, e) == nil && e.Message != "" {
		e.Code = res.StatusCode
		return e
	}
	return &Error{Code: res.StatusCode, Message: res.Status}
}

func (c *Client) pollEnsemble(ctx context.Context, secs int, last *EnsembleInfo) (*EnsembleInfo, error) {
	c.lock.Lock()
	cached := c.ensemble
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if cached != nil && cached.etag != last.etag {
		return cached, nil
	} else {
		otag = last.etag
	}

	v := &EnsembleInfo{}
	etag, e := c.poll(ctx, c.base+"/ensemble", otag, secs, v)
	if e != nil {
		return nil, e
	}
	if etag == "" {
		if cached != nil {
			return cached, nil
		}
		return last, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.ensemble = v
	c.lock.Unlock()
	return v, nil
}

// Ensemble returns the current ensemble state.
func (c *Client) Ensemble() (*EnsembleInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return c.pollEnsemble(ctx, 0, nil)
}

// WatchEnsemble waits until the ensemble differs from last, up to five
// minutes or until ctx is done.
func (c *Client) WatchEnsemble(ctx context.Context, last *EnsembleInfo) (*EnsembleInfo, error) {
	return c.pollEnsemble(ctx, maxPollTime, last)
}

// Watch waits for any change in the ensemble or its instances and
// returns the new Etag.  An empty etag returns the current one at once.
func (c *Client) Watch(ctx context.Context, etag string) (string, error) {
	var last *EnsembleInfo
	if etag != "" {
		last = &EnsembleInfo{etag: etag}
	}
	info, e := c.pollEnsemble(ctx, maxPollTime, last)
	if e != nil {
		return "", e
	}
	return info.etag, nil
}

// Instances returns the instance ids.
func (c *Client) Instances() ([]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	var ids []int
	if _, e := c.poll(ctx, c.url(0), "", 0, &ids); e != nil {
		return nil, e
	}
	return ids, nil
}

func (c *Client) pollInstance(ctx context.Context, id int, secs int, last *InstanceInfo) (*InstanceInfo, error) {

	c.lock.Lock()
	cached, ok := c.instances[id]
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if ok && last.etag != cached.etag {
		// If we asked for a check against a value, and the cached
		// value is not the same, then we can return the cached value.
		return cached, nil
	} else {
		otag = last.etag
	}

	v := &InstanceInfo{}
	etag, e := c.poll(ctx, c.url(id), otag, secs, v)
	if e != nil {
		c.lock.Lock()
		delete(c.instances, id)
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		if ok {
			return cached, nil
		}
		return last, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.instances[id] = v
	c.lock.Unlock()
	return v, nil
}

func (c *Client) GetInstance(id int) (*InstanceInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return c.pollInstance(ctx, id, 0, nil)
}

func (c *Client) WatchInstance(ctx context.Context, id int, last *InstanceInfo) (*InstanceInfo, error) {
	return c.pollInstance(ctx, id, maxPollTime, last)
}

func (c *Client) post(url string) error {
	req, e := http.NewRequest("POST", url, strings.NewReader(""))
	if e != nil {
		return e
	}
	req.Header.Set("Content-Type", "text/plain") // we don't really care
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return readError(res)
	}
	return nil
}

func (c *Client) StartEnsemble() error {
	return c.post(c.base + "/ensemble/start")
}

func (c *Client) StopEnsemble() error {
	return c.post(c.base + "/ensemble/stop")
}

func (c *Client) StartInstance(id int) error {
	return c.post(c.url(id) + "/start")
}

func (c *Client) StopInstance(id int) error {
	return c.post(c.url(id) + "/stop")
}

func (c *Client) RestartInstance(id int) error {
	return c.post(c.url(id) + "/restart")
}

func (c *Client) pollLog(ctx context.Context, id int, secs int, last *LogInfo) (*LogInfo, error) {

	c.lock.Lock()
	cached, ok := c.logs[id]
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if ok && last.etag != cached.etag {
		return cached, nil
	} else {
		otag = last.etag
	}

	url := c.url(id) + "/log"
	if id == 0 {
		url = c.base + "/log"
	}

	v := &LogInfo{id: id}
	etag, e := c.poll(ctx, url, otag, secs, &v.Records)
	if e != nil {
		c.lock.Lock()
		delete(c.logs, id)
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		if ok {
			return cached, nil
		}
		return last, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.logs[id] = v
	c.lock.Unlock()

	return v, nil
}

// WatchLog waits for new records in an instance log, or in the ensemble
// event log when id is 0.
func (c *Client) WatchLog(ctx context.Context, id int, last *LogInfo) (*LogInfo, error) {
	return c.pollLog(ctx, id, maxPollTime, last)
}

// GetLog returns an instance log, or the ensemble event log when id is 0.
func (c *Client) GetLog(id int) (*LogInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return c.pollLog(ctx, id, 0, nil)
}

// NewClient returns a Client handle.  The transport maybe nil to use
// a default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	c := &Client{
		transport: t,
		base:      strings.TrimRight(baseURI, "/"),
		client:    &http.Client{Transport: t},
		instances: make(map[int]*InstanceInfo),
		logs:      make(map[int]*LogInfo),
	}
	return c
}
