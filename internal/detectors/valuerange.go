// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"strings"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/detector"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/matchtree"
	"github.com/clusterwatch/sentryd/internal/persistence"
)

type valueBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ValueRange maintains, per id_path_list tuple key, a {min, max} range
// over target_path_list values. An observed value outside the range
// emits; while learning, the range extends to cover it instead. Atoms
// intersecting IgnoreList or missing any ConstraintList path are skipped
// (§4.4).
type ValueRange struct {
	base
	persistenceID string
	store         persistence.Store
	idPaths       []string
	targetPaths   []string
	ignoreList    map[string]bool
	constraintSet []string
	learn         *detector.LearnState
	ranges        map[string]*valueBounds
}

// ValueRangeConfig collects ValueRange's construction parameters.
type ValueRangeConfig struct {
	Name                  string
	PersistenceID         string
	IDPathList            []string
	TargetPathList        []string
	IgnoreList            []string
	ConstraintList        []string
	Sink                  event.Sink
	Store                 persistence.Store
	LearnMode             detector.LearnMode
	DeclaredLearn         bool
	StopLearningTime      time.Time
	StopLearningNoAnomaly time.Duration
}

// NewValueRange builds a ValueRange detector from cfg.
func NewValueRange(cfg ValueRangeConfig) *ValueRange {
	ignore := make(map[string]bool, len(cfg.IgnoreList))
	for _, p := range cfg.IgnoreList {
		ignore[p] = true
	}
	return &ValueRange{
		base:          base{name: cfg.Name, sink: cfg.Sink},
		persistenceID: cfg.PersistenceID,
		store:         cfg.Store,
		idPaths:       cfg.IDPathList,
		targetPaths:   cfg.TargetPathList,
		ignoreList:    ignore,
		constraintSet: cfg.ConstraintList,
		learn:         detector.NewLearnState(cfg.LearnMode.Resolve(cfg.DeclaredLearn), cfg.StopLearningTime, cfg.StopLearningNoAnomaly),
		ranges:        make(map[string]*valueBounds),
	}
}

func (d *ValueRange) PersistenceKey() string { return persistenceKey("ValueRange", d.persistenceID) }

func (d *ValueRange) DoPersist() error {
	if d.store == nil {
		return nil
	}
	return persistence.SaveDoc(d.store, d.PersistenceKey(), d.ranges)
}

func (d *ValueRange) LoadPersistenceData() error {
	if d.store == nil {
		return nil
	}
	var doc map[string]*valueBounds
	ok, err := persistence.LoadDoc(d.store, d.PersistenceKey(), &doc)
	if err != nil {
		return err
	}
	if ok {
		d.ranges = doc
	}
	return nil
}

func (d *ValueRange) idKey(a *atom.Atom) string {
	tree := a.Tree()
	ids := make([]string, 0, len(d.idPaths))
	for _, p := range d.idPaths {
		if el := tree.GetElement(p); el != nil {
			ids = append(ids, el.Value.String())
		}
	}
	return strings.Join(ids, "\x1f")
}

func (d *ValueRange) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	d.stats.Observe(true)

	for _, p := range tree.Paths() {
		if d.ignoreList[p] {
			return true
		}
	}
	for _, p := range d.constraintSet {
		if tree.GetElement(p) == nil {
			return true
		}
	}

	var values []float64
	for _, p := range d.targetPaths {
		el := tree.GetElement(p)
		if el == nil {
			continue
		}
		switch el.Value.Kind {
		case matchtree.KindInt:
			values = append(values, float64(el.Value.Int))
		case matchtree.KindFloat:
			values = append(values, el.Value.Float)
		case matchtree.KindTimestamp:
			values = append(values, el.Value.Timestamp)
		}
	}
	if len(values) == 0 {
		return true
	}

	now := time.Now()
	learning := d.learn.Learning(now)
	key := d.idKey(a)
	bounds, known := d.ranges[key]

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if !known {
		if learning {
			d.ranges[key] = &valueBounds{Min: lo, Max: hi}
			d.learn.ObserveExtension(now)
		}
		return true
	}

	if lo < bounds.Min || hi > bounds.Max {
		if learning {
			if lo < bounds.Min {
				bounds.Min = lo
			}
			if hi > bounds.Max {
				bounds.Max = hi
			}
			d.learn.ObserveExtension(now)
			return true
		}
		emit(d.sink, d.name, "value outside learned range", rawLogLine(a),
			event.AnalysisComponent{AffectedLogAtomPaths: d.targetPaths}, a)
	}
	return true
}
