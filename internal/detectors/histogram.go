// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"fmt"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/event"
)

// Histogram maintains a bucketed frequency distribution per path (or, with
// PathDependent set, per the immediate parent path of each target path)
// and periodically emits a report via the Time Trigger (§4.4).
type Histogram struct {
	base
	targetPaths    []string
	pathDependent  bool
	reportInterval time.Duration

	buckets        map[string]map[string]int64
	nextReportTime time.Time
	haveNextReport bool
}

// HistogramConfig collects Histogram's construction parameters.
type HistogramConfig struct {
	Name           string
	TargetPathList []string
	PathDependent  bool
	ReportInterval time.Duration
	Sink           event.Sink
}

// NewHistogram builds a Histogram detector from cfg.
func NewHistogram(cfg HistogramConfig) *Histogram {
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 60 * time.Second
	}
	return &Histogram{
		base:           base{name: cfg.Name, sink: cfg.Sink},
		targetPaths:    cfg.TargetPathList,
		pathDependent:  cfg.PathDependent,
		reportInterval: cfg.ReportInterval,
		buckets:        make(map[string]map[string]int64),
	}
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return path
}

func (d *Histogram) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	d.stats.Observe(true)

	handled := false
	for _, p := range d.targetPaths {
		el := tree.GetElement(p)
		if el == nil {
			continue
		}
		handled = true
		bucketKey := p
		if d.pathDependent {
			bucketKey = parentOf(p)
		}
		counts, ok := d.buckets[bucketKey]
		if !ok {
			counts = make(map[string]int64)
			d.buckets[bucketKey] = counts
		}
		counts[el.Value.String()]++
	}
	if !d.haveNextReport {
		d.nextReportTime = time.Now().Add(d.reportInterval)
		d.haveNextReport = true
	}
	return handled
}

func (d *Histogram) DoTimer(now time.Time) time.Duration {
	if !d.haveNextReport {
		return d.reportInterval
	}
	delta := d.nextReportTime.Sub(now)
	if delta <= 0 {
		d.sendReport(now)
		d.nextReportTime = now.Add(d.reportInterval)
		delta = d.reportInterval
	}
	return delta
}

func (d *Histogram) sendReport(now time.Time) {
	from := now.Add(-d.reportInterval)
	snapshot := make(map[string]map[string]int64, len(d.buckets))
	for k, v := range d.buckets {
		cp := make(map[string]int64, len(v))
		for val, n := range v {
			cp[val] = n
		}
		snapshot[k] = cp
	}
	line := fmt.Sprintf("Histogram report for the last %s: %d bucket(s)", d.reportInterval, len(snapshot))
	comp := event.AnalysisComponent{FromTime: &from, ToTime: &now, Extra: map[string]any{"Histograms": snapshot}}
	emit(d.sink, d.name, "Histogram report", []string{line}, comp, nil)
	for _, v := range d.buckets {
		for val := range v {
			v[val] = 0
		}
	}
}
