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

// Starvation is a Realtime-class time-triggered watchdog: it expects an
// atom matching Filter (nil matches every parsed atom) at least once every
// MaxSilence, and emits when that deadline passes with nothing observed.
// It supplements the representative §4.4 detectors with the "no atom for N
// seconds" watchdog present in the original under a different name
// (§12).
type Starvation struct {
	base
	filter     rule.Rule
	maxSilence time.Duration
	lastSeen   time.Time
	fired      bool
}

// NewStarvation builds the watchdog. startedAt seeds lastSeen so a cold
// start doesn't immediately fire before any atom has had a chance to
// arrive.
func NewStarvation(name string, filter rule.Rule, maxSilence time.Duration, sink event.Sink, startedAt time.Time) *Starvation {
	return &Starvation{
		base:       base{name: name, sink: sink},
		filter:     filter,
		maxSilence: maxSilence,
		lastSeen:   startedAt,
	}
}

func (d *Starvation) ReceiveAtom(a *atom.Atom) bool {
	if d.filter != nil && !d.filter.Match(a) {
		return false
	}
	d.stats.Observe(true)
	d.lastSeen = time.Now()
	d.fired = false
	return true
}

// DoTimer reports once when MaxSilence has elapsed since the last matching
// atom, then stays quiet (no repeat alarms) until a fresh atom resets it,
// coalescing any number of missed ticks the same way ParserCount/Histogram
// do (§4.5).
func (d *Starvation) DoTimer(now time.Time) time.Duration {
	silence := now.Sub(d.lastSeen)
	if silence >= d.maxSilence && !d.fired {
		d.fired = true
		emit(d.sink, d.name, "no matching atom observed within the configured interval", nil,
			event.AnalysisComponent{
				FromTime: &d.lastSeen,
				ToTime:   &now,
			}, nil)
	}
	remaining := d.maxSilence - silence
	if remaining <= 0 {
		return d.maxSilence
	}
	return remaining
}
