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
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

const (
	livenessTimeout  = time.Second * 5
	livenessInterval = time.Millisecond * 100
)

// Ensemble is a set of local servers configured as one cluster.  A single
// goroutine is expected to drive its lifecycle; the accessors and Dispose
// are safe to call from anywhere.
type Ensemble struct {
	name      string
	settings  *Settings
	instances []*Instance
	logger    Logger
	log       *Log

	running   atomic.Bool
	disposing atomic.Bool
	disposed  atomic.Bool
	done      chan struct{}

	serial     int64
	createTime time.Time
	updateTime time.Time
	mx         sync.Mutex
	cvs        map[*sync.Cond]bool
}

// EnsembleInfo is a snapshot of the ensemble state.
type EnsembleInfo struct {
	Name             string
	Size             int
	Running          bool
	Disposed         bool
	ConnectionString string
	Serial           int64
	CreateTime       time.Time
	UpdateTime       time.Time
}

func (e *Ensemble) lock() {
	e.mx.Lock()
}

func (e *Ensemble) unlock() {
	e.mx.Unlock()
}

// bumpSerial records a state change and wakes watchers.  Instances call
// it with their own lock held, so it must never call back into them.
func (e *Ensemble) bumpSerial() {
	e.lock()
	e.updateTime = time.Now()
	e.serial++
	for cv := range e.cvs {
		cv.Broadcast()
	}
	e.unlock()
}

// WatchSerial blocks until the serial differs from old or expire passes,
// and returns the current serial.  An expire of zero polls.
func (e *Ensemble) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&e.mx)
	var timer *time.Timer
	var rv int64

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			e.lock()
			expired = true
			cv.Broadcast()
			e.unlock()
		})
	} else {
		expired = true
	}

	e.lock()
	e.cvs[cv] = true
	for {
		rv = e.serial
		if rv != old || expired {
			break
		}
		cv.Wait()
	}
	delete(e.cvs, cv)
	e.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// Serial changes every time the ensemble or one of its instances changes
// state.
func (e *Ensemble) Serial() int64 {
	e.lock()
	defer e.unlock()
	return e.serial
}

func (e *Ensemble) Name() string {
	return e.name
}

// Settings returns a copy of the settings in effect, defaults included.
func (e *Ensemble) Settings() Settings {
	s := *e.settings
	if s.InstancesPorts != nil {
		s.InstancesPorts = append([]int{}, s.InstancesPorts...)
	}
	return s
}

func (e *Ensemble) IsRunning() bool {
	return e.running.Load()
}

func (e *Ensemble) IsDisposed() bool {
	return e.disposed.Load()
}

// Instances returns the instances in id order.  The slice is a copy.
func (e *Ensemble) Instances() []*Instance {
	return append([]*Instance{}, e.instances...)
}

// Instance looks up an instance by id.
func (e *Ensemble) Instance(id int) (*Instance, error) {
	for _, inst := range e.instances {
		if inst.ID() == id {
			return inst, nil
		}
	}
	return nil, ErrNoInstance
}

// ConnectionString is the comma separated host:port list clients use.
func (e *Ensemble) ConnectionString() string {
	addrs := make([]string, 0, len(e.instances))
	for _, inst := range e.instances {
		addrs = append(addrs, inst.Address())
	}
	return strings.Join(addrs, ",")
}

// Topology is the client endpoints as tcp:// URLs, in instance order.
func (e *Ensemble) Topology() []*url.URL {
	urls := make([]*url.URL, 0, len(e.instances))
	for _, inst := range e.instances {
		urls = append(urls, &url.URL{Scheme: "tcp", Host: inst.Address()})
	}
	return urls
}

func (e *Ensemble) GetInfo() *EnsembleInfo {
	info := &EnsembleInfo{
		Name:             e.name,
		Size:             len(e.instances),
		Running:          e.IsRunning(),
		Disposed:         e.IsDisposed(),
		ConnectionString: e.ConnectionString(),
	}
	e.lock()
	info.Serial = e.serial
	info.CreateTime = e.createTime
	info.UpdateTime = e.updateTime
	e.unlock()
	return info
}

// GetLog returns the ensemble event log: lifecycle messages from the
// ensemble and its instances, without server output.
func (e *Ensemble) GetLog(last int64) ([]LogRecord, int64) {
	return e.log.GetRecords(last)
}

func (e *Ensemble) WatchLog(old int64, expire time.Duration) int64 {
	return e.log.Watch(old, expire)
}

// Deploy writes every instance tree, replacing whatever was there, and
// starts the ensemble when startInstances is set.  On any failure the
// ensemble is disposed and the original error returned.
func (e *Ensemble) Deploy(startInstances bool) error {
	if e.disposing.Load() {
		return ErrDisposed
	}
	if err := e.deploy(startInstances); err != nil {
		e.logger.Error(err, "Error in starting. Will try to stop.")
		if derr := e.Dispose(); derr != nil {
			e.logger.Error(derr, "Dispose after failed deploy")
		}
		return err
	}
	return nil
}

func (e *Ensemble) deploy(startInstances bool) error {
	// Servers still running would be holding the files we replace.
	e.stopAll()
	e.running.Store(false)

	e.logger.Info("Deploying instances..")
	configs := GenerateConfigs(e.instances)
	dist := e.settings.Distribution
	for i, inst := range e.instances {
		logConfig := generateLogConfig(inst, e.settings.LogsDirectory)
		if err := deployInstance(inst, configs[i], logConfig, dist); err != nil {
			return err
		}
	}
	e.logger.Info(fmt.Sprintf("Deployed %d instances of %s.", len(e.instances), dist.Name()))
	e.bumpSerial()
	if startInstances {
		return e.Start()
	}
	return nil
}

// Start launches every instance concurrently and returns once all of them
// are healthy.  It does nothing if the ensemble is already running.
func (e *Ensemble) Start() error {
	if e.disposing.Load() {
		return ErrDisposed
	}
	if e.running.Load() {
		return nil
	}
	e.logger.Info("Starting instances..")
	var g errgroup.Group
	for _, inst := range e.instances {
		g.Go(inst.Start)
	}
	err := g.Wait()
	if err == nil {
		err = e.waitRunning(livenessTimeout)
	}
	if err != nil {
		// Leave nothing half started.
		e.logger.Error(err, "Start failed. Stopping instances.")
		e.stopAll()
		e.bumpSerial()
		return err
	}
	e.running.Store(true)
	e.bumpSerial()
	e.logger.Info("Started successfully!")
	return nil
}

// waitRunning confirms that every process is still alive after the
// individual starts.
func (e *Ensemble) waitRunning(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var idle []*Instance
		for _, inst := range e.instances {
			if !inst.IsRunning() {
				idle = append(idle, inst)
			}
		}
		if len(idle) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return &ProcessStartError{
				ID: idle[0].ID(),
				Err: fmt.Errorf("%d of %d instances have not started",
					len(idle), len(e.instances)),
			}
		}
		time.Sleep(livenessInterval)
	}
}

// Stop stops every instance that is running, including ones started
// individually while the ensemble was stopped.  Stopping never fails;
// problems are logged.
func (e *Ensemble) Stop() error {
	if e.disposing.Load() {
		return ErrDisposed
	}
	if !e.running.Load() && !e.anyRunning() {
		return nil
	}
	e.logger.Info("Stopping instances..")
	e.stopAll()
	e.running.Store(false)
	e.bumpSerial()
	e.logger.Info("Stopped successfully!")
	return nil
}

func (e *Ensemble) anyRunning() bool {
	for _, inst := range e.instances {
		if inst.IsRunning() {
			return true
		}
	}
	return false
}

func (e *Ensemble) stopAll() {
	var g errgroup.Group
	for _, inst := range e.instances {
		inst := inst
		g.Go(func() error {
			inst.Stop()
			return nil
		})
	}
	g.Wait()
}

// Dispose stops every instance, individually started ones included, and
// removes their directories.  Only the first call does the work; calls
// made while it runs wait for it and return nil.  A disposed ensemble
// cannot be used again.
func (e *Ensemble) Dispose() error {
	if !e.disposing.CompareAndSwap(false, true) {
		<-e.done
		return nil
	}
	defer close(e.done)

	e.stopAll()
	e.running.Store(false)

	e.logger.Info("Cleaning directories..")
	var result *multierror.Error
	for _, inst := range e.instances {
		if err := cleanupInstance(inst); err != nil {
			e.logger.Error(err, "Cleanup failed")
			result = multierror.Append(result, err)
		}
	}
	e.disposed.Store(true)
	e.bumpSerial()
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	e.logger.Info("Cleaned directories successfully!")
	return nil
}

// recordingLogger forwards to another Logger and keeps a copy of the info
// and error messages in the ensemble event log.
type recordingLogger struct {
	logger  Logger
	log     *Log
	context string
}

func (l *recordingLogger) record(level, msg string) {
	if l.context != "" {
		msg = "[" + l.context + "] " + msg
	}
	l.log.Write([]byte(level + " " + msg))
}

func (l *recordingLogger) Info(msg string) {
	l.record("INFO ", msg)
	l.logger.Info(msg)
}

func (l *recordingLogger) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *recordingLogger) Error(err error, msg string) {
	if err != nil {
		l.record("ERROR", msg+": "+err.Error())
	} else {
		l.record("ERROR", msg)
	}
	l.logger.Error(err, msg)
}

func (l *recordingLogger) ForContext(name string) Logger {
	return &recordingLogger{
		logger:  l.logger.ForContext(name),
		log:     l.log,
		context: name,
	}
}

// New creates an ensemble from settings without touching the disk.  It
// validates the settings and assigns every port.  The settings are copied;
// later changes to them have no effect.
func New(settings *Settings, logger Logger) (*Ensemble, error) {
	if settings == nil {
		return nil, &ConfigurationError{Field: "Settings", Reason: "must not be nil"}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	s := settings.withDefaults()
	if s.Name == "" {
		s.Name = "zk-" + uuid.NewString()
	}
	base := s.BaseDirectory
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, &ConfigurationError{Field: "BaseDirectory", Reason: err.Error()}
	}
	s.BaseDirectory = base
	if logger == nil {
		logger = NopLogger()
	}

	e := &Ensemble{
		name:     s.Name,
		settings: s,
		log:      NewLog(),
		done:     make(chan struct{}),
		serial:   time.Now().UnixNano(),
		cvs:      make(map[*sync.Cond]bool),
	}
	e.createTime = time.Now()
	e.updateTime = e.createTime
	e.logger = &recordingLogger{
		logger: logger.ForContext("ZKEnsemble"),
		log:    e.log,
	}

	ports := newPortSet(s.InstancesPorts)
	for n := 0; n < s.Size; n++ {
		id := s.StartingID + n
		var client int
		if s.InstancesPorts != nil {
			client = s.InstancesPorts[n]
		} else if client, err = ports.allocate(); err != nil {
			return nil, err
		}
		peer, err := ports.allocate()
		if err != nil {
			return nil, err
		}
		election, err := ports.allocate()
		if err != nil {
			return nil, err
		}
		e.instances = append(e.instances, newInstance(instanceConfig{
			id:           id,
			clientPort:   client,
			peerPort:     peer,
			electionPort: election,
			hostname:     s.Hostname,
			baseDir:      filepath.Join(base, fmt.Sprintf("ZK-%d", id)),
			dist:         s.Distribution,
			startTimeout: s.StartTimeout,
			stopTimeout:  s.StopTimeout,
			logger:       e.logger,
			notify:       e.bumpSerial,
		}))
	}

	lines := make([]string, 0, len(e.instances))
	for _, inst := range e.instances {
		lines = append(lines, inst.String())
	}
	e.logger.Info("Created instances: \n\t" + strings.Join(lines, "\n\t"))
	return e, nil
}

// DeployNew creates an ensemble, deploys it, and optionally starts it.  If
// anything fails the partially deployed ensemble is disposed before the
// error is returned.
func DeployNew(settings *Settings, logger Logger, startInstances bool) (*Ensemble, error) {
	e, err := New(settings, logger)
	if err != nil {
		return nil, err
	}
	if err = e.Deploy(startInstances); err != nil {
		return nil, err
	}
	return e, nil
}

// DeployNewSize deploys and starts an ensemble of size instances with
// default settings.
func DeployNewSize(size int, logger Logger) (*Ensemble, error) {
	return DeployNew(NewSettings(size), logger, true)
}

// DeployNewFrom is DeployNewSize with ids starting at startingID.
func DeployNewFrom(startingID, size int, logger Logger) (*Ensemble, error) {
	s := NewSettings(size)
	s.StartingID = startingID
	return DeployNew(s, logger, true)
}
