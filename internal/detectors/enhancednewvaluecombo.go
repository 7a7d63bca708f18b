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
	"github.com/clusterwatch/sentryd/internal/persistence"
)

type comboRecord struct {
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Examples  []string  `json:"examples,omitempty"`
}

// EnhancedNewValueCombo is NewMatchPathValueCombo plus per-combo
// occurrence counts and first/last-seen timestamps for reporting (§4.4).
// With MaxExamplesPerCombo > 0 it also keeps a bounded number of example
// raw log lines per learned combo for operator debugging (§12).
type EnhancedNewValueCombo struct {
	base
	persistenceID       string
	store               persistence.Store
	paths               []string
	maxExamplesPerCombo int
	learn               *detector.LearnState
	combos              map[string]*comboRecord
}

// NewEnhancedNewValueCombo builds an EnhancedNewValueCombo detector over
// paths. maxExamplesPerCombo of 0 disables example retention.
func NewEnhancedNewValueCombo(name, persistenceID string, paths []string, maxExamplesPerCombo int, sink event.Sink, store persistence.Store, learnMode detector.LearnMode, declaredLearn bool, stopLearningTime time.Time, stopLearningNoAnomaly time.Duration) *EnhancedNewValueCombo {
	p := make([]string, len(paths))
	copy(p, paths)
	return &EnhancedNewValueCombo{
		base:                base{name: name, sink: sink},
		persistenceID:       persistenceID,
		store:               store,
		paths:               p,
		maxExamplesPerCombo: maxExamplesPerCombo,
		learn:               detector.NewLearnState(learnMode.Resolve(declaredLearn), stopLearningTime, stopLearningNoAnomaly),
		combos:              make(map[string]*comboRecord),
	}
}

func (d *EnhancedNewValueCombo) PersistenceKey() string {
	return persistenceKey("EnhancedNewValueCombo", d.persistenceID)
}

func (d *EnhancedNewValueCombo) DoPersist() error {
	if d.store == nil {
		return nil
	}
	return persistence.SaveDoc(d.store, d.PersistenceKey(), d.combos)
}

func (d *EnhancedNewValueCombo) LoadPersistenceData() error {
	if d.store == nil {
		return nil
	}
	var doc map[string]*comboRecord
	ok, err := persistence.LoadDoc(d.store, d.PersistenceKey(), &doc)
	if err != nil {
		return err
	}
	if ok {
		d.combos = doc
	}
	return nil
}

func (d *EnhancedNewValueCombo) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	d.stats.Observe(true)

	values := make([]string, len(d.paths))
	for i, p := range d.paths {
		el := tree.GetElement(p)
		if el == nil {
			return true
		}
		values[i] = el.Value.String()
	}
	key := strings.Join(values, "\x1f")

	now := time.Now()
	learning := d.learn.Learning(now)
	rec, known := d.combos[key]
	if known {
		rec.Count++
		rec.LastSeen = now
		d.addExample(rec, a)
		return true
	}
	if learning {
		rec := &comboRecord{Count: 1, FirstSeen: now, LastSeen: now}
		d.addExample(rec, a)
		d.combos[key] = rec
		d.learn.ObserveExtension(now)
		return true
	}
	emit(d.sink, d.name, "new value combination observed", rawLogLine(a),
		event.AnalysisComponent{AffectedLogAtomPaths: d.paths, AffectedLogAtomValues: values}, a)
	return true
}

// addExample appends a's raw line to rec's bounded example list, a no-op
// once maxExamplesPerCombo is disabled (0) or the bound is reached.
func (d *EnhancedNewValueCombo) addExample(rec *comboRecord, a *atom.Atom) {
	if d.maxExamplesPerCombo <= 0 || len(rec.Examples) >= d.maxExamplesPerCombo {
		return
	}
	rec.Examples = append(rec.Examples, string(a.Raw()))
}
