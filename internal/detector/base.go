// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package detector implements the shared Detector Base contract (§4.4):
// the learning state machine, statistics counters, and persistence hooks
// every concrete detector in internal/detectors embeds.
package detector

import (
	"sync"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
)

// Detector is the contract every concrete analysis detector implements.
// bool return is handled/not-handled, never anomaly/not-anomaly (§4.4).
type Detector interface {
	Name() string
	ReceiveAtom(a *atom.Atom) bool
	LogStatistics(name string)
}

// TimeTriggered is implemented by detectors the Time Trigger drives (§4.5).
type TimeTriggered interface {
	Detector
	DoTimer(now time.Time) time.Duration
}

// Persistable is implemented by detectors with state to survive restarts
// (§4.6).
type Persistable interface {
	Detector
	PersistenceKey() string
	DoPersist() error
	LoadPersistenceData() error
}

// AllowBlockListable is implemented by detectors whose previously-seen
// anomalies can be suppressed, or paths excluded, after the fact (§4.4).
type AllowBlockListable interface {
	Detector
	AllowlistEvent(kind string, data, payload map[string]any) error
	BlocklistEvent(kind string, data, payload map[string]any) error
}

// LearnState is the {Learning, Locked} state machine (§4.4, §3). The zero
// value is Learning with no deadlines, matching a detector declared with no
// stop_learning_* fields (learns until the pipeline overrides it or never
// stops).
type LearnState struct {
	mu sync.Mutex

	locked bool

	// stopAt is the absolute stop_learning_time deadline; zero means unset.
	stopAt time.Time
	// slidingWindow is stop_learning_no_anomaly_time: learning stops once
	// this much time passes with no anomaly-free observation extending the
	// model. slidingDeadline is recomputed on every such observation.
	slidingWindow   time.Duration
	slidingDeadline time.Time
}

// NewLearnState builds a LearnState from a detector's declared learn flag
// and deadlines. learn=false locks immediately, whatever the deadlines:
// the detector never learns.
func NewLearnState(learn bool, stopAt time.Time, slidingWindow time.Duration) *LearnState {
	s := &LearnState{stopAt: stopAt, slidingWindow: slidingWindow}
	if !learn {
		s.locked = true
	}
	if slidingWindow > 0 {
		s.slidingDeadline = time.Now().Add(slidingWindow)
	}
	return s
}

// Learning reports whether the detector should currently extend its model.
// Checking and possibly transitioning to Locked happens atomically so a
// racing do_timer/receive_atom pair (serialised by the pipeline per §5, but
// LearnState is also usable standalone) never observes a torn state.
func (s *LearnState) Learning(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return false
	}
	if !s.stopAt.IsZero() && !now.Before(s.stopAt) {
		s.locked = true
		return false
	}
	if s.slidingWindow > 0 && !s.slidingDeadline.IsZero() && !now.Before(s.slidingDeadline) {
		s.locked = true
		return false
	}
	return true
}

// ObserveExtension records that an anomaly-free observation just extended
// the model, resetting the sliding no-anomaly deadline. Call only when the
// detector actually learned from the observation.
func (s *LearnState) ObserveExtension(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.slidingWindow <= 0 {
		return
	}
	s.slidingDeadline = now.Add(s.slidingWindow)
}

// Locked reports whether learning has terminally stopped.
func (s *LearnState) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// LearnMode is the pipeline's tri-state global override (§4.4): applied at
// pipeline build time, not per atom.
type LearnMode int

const (
	// LearnModeUnset honours each detector's declared flag.
	LearnModeUnset LearnMode = iota
	LearnModeForceOn
	LearnModeForceOff
)

// Resolve applies the override to a detector's declared learn flag.
func (m LearnMode) Resolve(declared bool) bool {
	switch m {
	case LearnModeForceOn:
		return true
	case LearnModeForceOff:
		return false
	default:
		return declared
	}
}

// Stats holds the log_total / log_success counters every detector reports
// via LogStatistics (§4.4).
type Stats struct {
	mu      sync.Mutex
	total   int64
	success int64
}

// Observe increments the total counter, and the success counter when the
// atom was handled.
func (s *Stats) Observe(handled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if handled {
		s.success++
	}
}

// Snapshot returns (total, success) and resets both to zero, matching
// log_statistics's "over the last interval" semantics.
func (s *Stats) Snapshot() (total, success int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, success = s.total, s.success
	s.total, s.success = 0, 0
	return
}
