// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"fmt"
	"strings"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/event"
)

type parserCountEntry struct {
	Current int64 `json:"CurrentProcessedLines"`
	Total   int64 `json:"TotalProcessedLines"`
}

// ParserCount counts occurrences per target path (or, with no declared
// target paths, per the first path of every atom) over a reporting
// interval and emits either one aggregated report or one report per path
// at each Time Trigger boundary (§4.4), grounded on ParserCount.py's
// count_dict / next_report_time / send_report split.
type ParserCount struct {
	base
	targetPaths    []string
	targetLabels   map[string]string
	reportInterval time.Duration
	splitReports   bool

	counts         map[string]*parserCountEntry
	nextReportTime time.Time
	haveNextReport bool
}

// ParserCountConfig collects ParserCount's construction parameters.
type ParserCountConfig struct {
	Name           string
	TargetPathList []string
	TargetLabels   map[string]string // path -> label, optional
	ReportInterval time.Duration
	SplitReports   bool
	Sink           event.Sink
}

// NewParserCount builds a ParserCount detector from cfg. Defaults
// ReportInterval to 60s to match ParserCount.py's default.
func NewParserCount(cfg ParserCountConfig) *ParserCount {
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 60 * time.Second
	}
	return &ParserCount{
		base:           base{name: cfg.Name, sink: cfg.Sink},
		targetPaths:    cfg.TargetPathList,
		targetLabels:   cfg.TargetLabels,
		reportInterval: cfg.ReportInterval,
		splitReports:   cfg.SplitReports,
		counts:         make(map[string]*parserCountEntry),
	}
}

func (d *ParserCount) labelFor(path string) string {
	if d.targetLabels != nil {
		if l, ok := d.targetLabels[path]; ok {
			return l
		}
	}
	return path
}

func (d *ParserCount) bump(key string) {
	e, ok := d.counts[key]
	if !ok {
		e = &parserCountEntry{}
		d.counts[key] = e
	}
	e.Current++
	e.Total++
}

func (d *ParserCount) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	d.stats.Observe(true)

	handled := false
	if len(d.targetPaths) == 0 {
		paths := tree.Paths()
		if len(paths) > 0 {
			d.bump(d.labelFor(paths[0]))
			handled = true
		}
	} else {
		for _, p := range d.targetPaths {
			if tree.GetElement(p) != nil || tree.GetList(p) != nil {
				d.bump(d.labelFor(p))
				handled = true
			}
		}
	}
	if !d.haveNextReport {
		d.nextReportTime = time.Now().Add(d.reportInterval)
		d.haveNextReport = true
	}
	return handled
}

// DoTimer implements the Time Trigger contract for the Realtime class
// (§4.5): sends the report once the deadline passes, coalescing any
// missed ticks into a single send, then returns the next delay.
func (d *ParserCount) DoTimer(now time.Time) time.Duration {
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

func (d *ParserCount) sendReport(now time.Time) {
	from := now.Add(-d.reportInterval)
	if d.splitReports {
		for k, c := range d.counts {
			line := fmt.Sprintf("Parsed paths in the last %s:\n\t%s: %+v", d.reportInterval, k, *c)
			comp := event.AnalysisComponent{FromTime: &from, ToTime: &now, Extra: map[string]any{"StatusInfo": map[string]parserCountEntry{k: *c}}}
			emit(d.sink, d.name, "Count report", []string{line}, comp, nil)
			c.Current = 0
		}
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Parsed paths in the last %s:\n", d.reportInterval)
	status := make(map[string]parserCountEntry, len(d.counts))
	for k, c := range d.counts {
		fmt.Fprintf(&b, "\t%s: %+v\n", k, *c)
		status[k] = *c
		c.Current = 0
	}
	comp := event.AnalysisComponent{FromTime: &from, ToTime: &now, Extra: map[string]any{"StatusInfo": status}}
	emit(d.sink, d.name, "Count report", []string{b.String()}, comp, nil)
}
