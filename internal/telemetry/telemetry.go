// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry exposes every detector's log_total/log_success
// counters (§4.4's LogStatistics contract) as Prometheus metrics, the
// same registry-plus-CounterVec shape the rest of the retrieval pack
// uses for per-component instrumentation rather than the teacher's own
// Prometheus usage (a query client, not an exporter — internal/metricdata
// talks to an external Prometheus, it doesn't run one).
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what a detector.Stats snapshot is reported through. Kept as
// an interface, not a concrete *Registry, so detectors needing no
// instrumentation can be wired against a Nop without importing Prometheus
// at all.
type Recorder interface {
	Observe(detectorName string, total, success int64)
}

// Registry is the default Recorder: one CounterVec pair, labelled by
// detector name, registered against a private prometheus.Registry rather
// than the global DefaultRegisterer so a pipeline can run more than one
// instance (e.g. in tests) without collding on metric registration.
type Registry struct {
	reg     *prometheus.Registry
	total   *prometheus.CounterVec
	success *prometheus.CounterVec
}

// NewRegistry builds an empty Registry. Observe is safe to call
// concurrently; CounterVec handles its own locking.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentryd",
		Subsystem: "detector",
		Name:      "log_total",
		Help:      "Atoms a detector's ReceiveAtom was called with since startup.",
	}, []string{"detector"})

	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentryd",
		Subsystem: "detector",
		Name:      "log_success",
		Help:      "Atoms a detector's ReceiveAtom reported as handled since startup.",
	}, []string{"detector"})

	reg.MustRegister(total, success)

	return &Registry{reg: reg, total: total, success: success}
}

// Observe adds a LogStatistics snapshot's deltas to detectorName's
// counters. Called once per reporting interval per detector, so Add (not
// Set) is correct: the counters are cumulative across the process
// lifetime, matching Prometheus counter semantics, even though each
// detector.Stats.Snapshot call itself resets to zero.
func (r *Registry) Observe(detectorName string, total, success int64) {
	r.total.WithLabelValues(detectorName).Add(float64(total))
	r.success.WithLabelValues(detectorName).Add(float64(success))
}

// Register pre-creates detectorName's series at zero, so a detector with
// no atoms yet still appears in a scrape rather than being absent until
// its first LogStatistics call.
func (r *Registry) Register(detectorName string) {
	r.total.WithLabelValues(detectorName)
	r.success.WithLabelValues(detectorName)
}

// Handler returns the /metrics exposition endpoint for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// nop is the Recorder used when a pipeline is built without telemetry.
type nop struct{}

func (nop) Observe(string, int64, int64) {}

// Nop is a Recorder that discards every observation.
var Nop Recorder = nop{}
