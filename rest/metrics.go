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
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/govisor/zkensemble"
)

// Metrics holds the Prometheus collectors for one Handler.  Each Handler
// has its own registry, so several ensembles can be served from one
// process.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	descRunning = prometheus.NewDesc("zkensemble_running",
		"Whether the ensemble as a whole is running.", []string{"ensemble"}, nil)
	descInstanceUp = prometheus.NewDesc("zkensemble_instance_up",
		"Whether the instance process is running.", []string{"ensemble", "id"}, nil)
	descInstanceStarts = prometheus.NewDesc("zkensemble_instance_starts_total",
		"Successful starts of the instance.", []string{"ensemble", "id"}, nil)
	descInstanceFailures = prometheus.NewDesc("zkensemble_instance_failures_total",
		"Failed starts and unexpected exits of the instance.", []string{"ensemble", "id"}, nil)
)

// ensembleCollector reads instance state at scrape time.
type ensembleCollector struct {
	e *zkensemble.Ensemble
}

func (c ensembleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descRunning
	ch <- descInstanceUp
	ch <- descInstanceStarts
	ch <- descInstanceFailures
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c ensembleCollector) Collect(ch chan<- prometheus.Metric) {
	name := c.e.Name()
	ch <- prometheus.MustNewConstMetric(descRunning, prometheus.GaugeValue,
		boolGauge(c.e.IsRunning()), name)
	for _, inst := range c.e.Instances() {
		id := strconv.Itoa(inst.ID())
		ch <- prometheus.MustNewConstMetric(descInstanceUp, prometheus.GaugeValue,
			boolGauge(inst.IsRunning()), name, id)
		ch <- prometheus.MustNewConstMetric(descInstanceStarts, prometheus.CounterValue,
			float64(inst.Starts()), name, id)
		ch <- prometheus.MustNewConstMetric(descInstanceFailures, prometheus.CounterValue,
			float64(inst.Failures()), name, id)
	}
}

func NewMetrics(e *zkensemble.Ensemble) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zkensemble_http_requests_total",
			Help: "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zkensemble_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests, long polls included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(m.requests, m.duration, ensembleCollector{e: e})
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument is mux middleware counting requests per route template.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, e := cur.GetPathTemplate(); e == nil {
				route = tmpl
			}
		}
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(sw.code)).Inc()
	})
}
