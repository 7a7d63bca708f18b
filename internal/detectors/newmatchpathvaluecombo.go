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

// NewMatchPathValueCombo maintains the set of previously seen value
// N-tuples across a fixed list of paths. An atom missing any of the N
// paths is skipped entirely (§4.4).
type NewMatchPathValueCombo struct {
	base
	persistenceID string
	store         persistence.Store
	paths         []string
	learn         *detector.LearnState
	known         map[string]bool
}

// NewNewMatchPathValueCombo builds a NewMatchPathValueCombo detector over
// paths, the tuple of Match Tree paths whose combined values are tracked.
func NewNewMatchPathValueCombo(name, persistenceID string, paths []string, sink event.Sink, store persistence.Store, learnMode detector.LearnMode, declaredLearn bool, stopLearningTime time.Time, stopLearningNoAnomaly time.Duration) *NewMatchPathValueCombo {
	p := make([]string, len(paths))
	copy(p, paths)
	return &NewMatchPathValueCombo{
		base:          base{name: name, sink: sink},
		persistenceID: persistenceID,
		store:         store,
		paths:         p,
		learn:         detector.NewLearnState(learnMode.Resolve(declaredLearn), stopLearningTime, stopLearningNoAnomaly),
		known:         make(map[string]bool),
	}
}

func (d *NewMatchPathValueCombo) PersistenceKey() string {
	return persistenceKey("NewMatchPathValueCombo", d.persistenceID)
}

func (d *NewMatchPathValueCombo) DoPersist() error {
	if d.store == nil {
		return nil
	}
	return persistence.SaveDoc(d.store, d.PersistenceKey(), d.known)
}

func (d *NewMatchPathValueCombo) LoadPersistenceData() error {
	if d.store == nil {
		return nil
	}
	var doc map[string]bool
	ok, err := persistence.LoadDoc(d.store, d.PersistenceKey(), &doc)
	if err != nil {
		return err
	}
	if ok {
		d.known = doc
	}
	return nil
}

func (d *NewMatchPathValueCombo) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	d.stats.Observe(true)

	values := make([]string, len(d.paths))
	for i, p := range d.paths {
		el := tree.GetElement(p)
		if el == nil {
			// Missing one of the N paths: skip, per §4.4.
			return true
		}
		values[i] = el.Value.String()
	}
	key := strings.Join(values, "\x1f")

	now := time.Now()
	learning := d.learn.Learning(now)
	if d.known[key] {
		return true
	}
	if learning {
		d.known[key] = true
		d.learn.ObserveExtension(now)
		return true
	}
	emit(d.sink, d.name, "new value combination observed", rawLogLine(a),
		event.AnalysisComponent{AffectedLogAtomPaths: d.paths, AffectedLogAtomValues: values}, a)
	return true
}
