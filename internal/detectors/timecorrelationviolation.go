// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/detector/rule"
	"github.com/clusterwatch/sentryd/internal/event"
)

// CorrelationPair is one A→B expected-latency rule: every atom matching A
// should be followed, within Window, by an atom matching B. HysteresisFactor
// supplements the hard Window cutoff with a configurable slack (Window *
// (1 + HysteresisFactor)) before a pending A is reported as violated,
// absorbing the original's jitter tolerance around correlated event pairs
// (§12). Zero disables the slack, reproducing the hard cutoff.
type CorrelationPair struct {
	Name             string
	A                rule.Rule
	B                rule.Rule
	Window           time.Duration
	HysteresisFactor float64
}

// deadline returns the window extended by pair's hysteresis slack.
func (pair CorrelationPair) deadline() time.Duration {
	if pair.HysteresisFactor <= 0 {
		return pair.Window
	}
	return time.Duration(float64(pair.Window) * (1 + pair.HysteresisFactor))
}

type pendingA struct {
	atom    *atom.Atom
	seenAt  float64
	pending bool
}

// TimeCorrelationViolation tracks, for each configured CorrelationPair, A
// occurrences awaiting a timely matching B, and emits when B is late or
// never arrives (§4.4). Lateness is judged against each atom's resolved
// timestamp, not wall-clock, so replayed/historical sources are handled
// the same as live ones.
type TimeCorrelationViolation struct {
	base
	pairs []CorrelationPair
	state []pendingA
}

// NewTimeCorrelationViolation builds the detector over pairs.
func NewTimeCorrelationViolation(name string, pairs []CorrelationPair, sink event.Sink) *TimeCorrelationViolation {
	p := make([]CorrelationPair, len(pairs))
	copy(p, pairs)
	return &TimeCorrelationViolation{base: base{name: name, sink: sink}, pairs: p, state: make([]pendingA, len(p))}
}

func (d *TimeCorrelationViolation) ReceiveAtom(a *atom.Atom) bool {
	if !a.Parsed() {
		return false
	}
	d.stats.Observe(true)

	ts, haveTS := a.Timestamp()
	handled := false
	for i, pair := range d.pairs {
		st := &d.state[i]
		if st.pending && pair.B.Match(a) {
			st.pending = false
			handled = true
			continue
		}
		if st.pending && haveTS && ts-st.seenAt > pair.deadline().Seconds() {
			emit(d.sink, d.name, pair.Name+": expected correlated event did not arrive in time",
				rawLogLine(st.atom), event.AnalysisComponent{AffectedLogAtomPaths: affectedPaths(st.atom)}, st.atom)
			st.pending = false
		}
		if pair.A.Match(a) {
			handled = true
			d.state[i] = pendingA{atom: a, seenAt: ts, pending: true}
		}
	}
	return handled
}

// DoTimer sweeps for pairs whose window elapsed with no intervening atom,
// using wall-clock now as the reference since no new atom has arrived to
// carry a fresher timestamp (§4.5, Realtime trigger class).
func (d *TimeCorrelationViolation) DoTimer(now time.Time) time.Duration {
	minWindow := time.Minute
	for i, pair := range d.pairs {
		st := &d.state[i]
		if st.pending && now.Sub(time.Unix(int64(st.seenAt), 0)) > pair.deadline() {
			emit(d.sink, d.name, pair.Name+": expected correlated event did not arrive in time",
				rawLogLine(st.atom), event.AnalysisComponent{AffectedLogAtomPaths: affectedPaths(st.atom)}, st.atom)
			st.pending = false
		}
		if pair.Window < minWindow {
			minWindow = pair.Window
		}
	}
	return minWindow
}
