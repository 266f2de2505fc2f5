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
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/govisor/zkensemble"
)

// Handler wraps an Ensemble, adding http.Handler functionality.
type Handler struct {
	e       *zkensemble.Ensemble
	r       *mux.Router
	metrics *Metrics
	auth    *Authenticator
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

// poll answers a GET for a resource whose version is tracked by watch.
// It honours If-None-Match, and the long poll headers.
func (h *Handler) poll(w http.ResponseWriter, r *http.Request,
	watch func(int64, time.Duration) int64, body func() interface{}) {

	serial := watch(0, 0)
	if old, e := strconv.ParseInt(r.Header.Get(PollEtagHeader), 10, 64); e == nil {
		secs, _ := strconv.Atoi(r.Header.Get(PollTimeHeader))
		if secs > maxPollTime {
			secs = maxPollTime
		}
		if secs > 0 && old == serial {
			serial = watch(old, time.Duration(secs)*time.Second)
		}
	}
	etag := strconv.FormatInt(serial, 10)
	w.Header().Set("Etag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJson(w, body())
}

func (h *Handler) ensembleInfo() interface{} {
	gi := h.e.GetInfo()
	info := &EnsembleInfo{
		Name:             gi.Name,
		Size:             gi.Size,
		Running:          gi.Running,
		Disposed:         gi.Disposed,
		ConnectionString: gi.ConnectionString,
		CreateTime:       gi.CreateTime,
		UpdateTime:       gi.UpdateTime,
	}
	for _, u := range h.e.Topology() {
		info.Topology = append(info.Topology, u.String())
	}
	for _, inst := range h.e.Instances() {
		info.Instances = append(info.Instances, inst.ID())
	}
	return info
}

func (h *Handler) getEnsemble(w http.ResponseWriter, r *http.Request) {
	h.poll(w, r, h.e.WatchSerial, h.ensembleInfo)
}

func (h *Handler) startEnsemble(w http.ResponseWriter, r *http.Request) {
	if err := h.e.Start(); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) stopEnsemble(w http.ResponseWriter, r *http.Request) {
	if err := h.e.Stop(); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) listInstances(w http.ResponseWriter, r *http.Request) {
	insts := h.e.Instances()
	l := make([]int, 0, len(insts))
	for _, inst := range insts {
		l = append(l, inst.ID())
	}
	h.poll(w, r, h.e.WatchSerial, func() interface{} { return l })
}

func (h *Handler) findInstance(r *http.Request) (*zkensemble.Instance, *Error) {
	id, e := strconv.Atoi(mux.Vars(r)["id"])
	if e != nil {
		return nil, &Error{http.StatusBadRequest, "Bad instance id"}
	}
	inst, e := h.e.Instance(id)
	if e != nil {
		return nil, &Error{http.StatusNotFound, "Instance not found"}
	}
	return inst, nil
}

func instanceInfo(inst *zkensemble.Instance) *InstanceInfo {
	info := &InstanceInfo{
		ID:            inst.ID(),
		Name:          inst.Name(),
		Hostname:      inst.Hostname(),
		ClientPort:    inst.ClientPort(),
		PeerPort:      inst.PeerPort(),
		ElectionPort:  inst.ElectionPort(),
		BaseDirectory: inst.BaseDirectory(),
		Running:       inst.IsRunning(),
		Failed:        inst.Failed(),
		Pid:           inst.Pid(),
		Starts:        inst.Starts(),
		Failures:      inst.Failures(),
	}
	if err := inst.Reason(); err != nil {
		info.Reason = err.Error()
	}
	if info.Running {
		hc := zkensemble.NewHealthChecker(zkensemble.NopLogger(),
			"127.0.0.1", inst.ClientPort())
		info.Healthy = hc.Check() == nil
	}
	info.Status, info.TimeStamp = inst.Status()
	return info
}

func (h *Handler) getInstance(w http.ResponseWriter, r *http.Request) {
	if inst, e := h.findInstance(r); e != nil {
		h.writeError(w, e)
	} else {
		h.poll(w, r, h.e.WatchSerial, func() interface{} {
			return instanceInfo(inst)
		})
	}
}

func (h *Handler) startInstance(w http.ResponseWriter, r *http.Request) {
	if inst, e := h.findInstance(r); e != nil {
		h.writeError(w, e)
	} else if err := inst.Start(); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) stopInstance(w http.ResponseWriter, r *http.Request) {
	if inst, e := h.findInstance(r); e != nil {
		h.writeError(w, e)
	} else {
		inst.Stop()
		h.writeJson(w, ok)
	}
}

func (h *Handler) restartInstance(w http.ResponseWriter, r *http.Request) {
	if inst, e := h.findInstance(r); e != nil {
		h.writeError(w, e)
	} else if err := inst.Restart(); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) getInstanceLog(w http.ResponseWriter, r *http.Request) {
	if inst, e := h.findInstance(r); e != nil {
		h.writeError(w, e)
	} else {
		h.poll(w, r, inst.WatchLog, func() interface{} {
			recs, _ := inst.GetLog(0)
			return recs
		})
	}
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	h.poll(w, r, h.e.WatchLog, func() interface{} {
		recs, _ := h.e.GetLog(0)
		return recs
	})
}

// RequireAuth makes every request, metrics included, authenticate with a.
func (h *Handler) RequireAuth(a *Authenticator) {
	h.auth = a
}

// Metrics returns the collectors behind /metrics.
func (h *Handler) Metrics() *Metrics {
	return h.metrics
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h.auth != nil && !h.auth.Check(req) {
		h.auth.Challenge(w)
		return
	}
	h.r.ServeHTTP(w, req)
}

func NewHandler(e *zkensemble.Ensemble) *Handler {
	r := mux.NewRouter()
	h := &Handler{e: e, r: r, metrics: NewMetrics(e)}
	r.Use(h.metrics.instrument)
	r.HandleFunc("/ensemble", h.getEnsemble).Methods("GET")
	r.HandleFunc("/ensemble/start", h.startEnsemble).Methods("POST")
	r.HandleFunc("/ensemble/stop", h.stopEnsemble).Methods("POST")
	r.HandleFunc("/instances", h.listInstances).Methods("GET")
	r.HandleFunc("/instances/{id:[0-9]+}", h.getInstance).Methods("GET")
	r.HandleFunc("/instances/{id:[0-9]+}/start", h.startInstance).Methods("POST")
	r.HandleFunc("/instances/{id:[0-9]+}/stop", h.stopInstance).Methods("POST")
	r.HandleFunc("/instances/{id:[0-9]+}/restart", h.restartInstance).Methods("POST")
	r.HandleFunc("/instances/{id:[0-9]+}/log", h.getInstanceLog).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	return h
}
