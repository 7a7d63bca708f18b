// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/detector"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/persistence"
)

// NewMatchPathValue maintains, per Match Tree path, the set of previously
// seen decoded values at that path. Same emit/learn contract as
// NewMatchPath, one level more specific (§4.4).
type NewMatchPathValue struct {
	base
	persistenceID string
	store         persistence.Store
	learn         *detector.LearnState
	known         map[string]map[string]bool
}

// NewNewMatchPathValue builds a NewMatchPathValue detector.
func NewNewMatchPathValue(name, persistenceID string, sink event.Sink, store persistence.Store, learnMode detector.LearnMode, declaredLearn bool, stopLearningTime time.Time, stopLearningNoAnomaly time.Duration) *NewMatchPathValue {
	return &NewMatchPathValue{
		base:          base{name: name, sink: sink},
		persistenceID: persistenceID,
		store:         store,
		learn:         detector.NewLearnState(learnMode.Resolve(declaredLearn), stopLearningTime, stopLearningNoAnomaly),
		known:         make(map[string]map[string]bool),
	}
}

func (d *NewMatchPathValue) PersistenceKey() string {
	return persistenceKey("NewMatchPathValue", d.persistenceID)
}

func (d *NewMatchPathValue) DoPersist() error {
	if d.store == nil {
		return nil
	}
	return persistence.SaveDoc(d.store, d.PersistenceKey(), d.known)
}

func (d *NewMatchPathValue) LoadPersistenceData() error {
	if d.store == nil {
		return nil
	}
	var doc map[string]map[string]bool
	ok, err := persistence.LoadDoc(d.store, d.PersistenceKey(), &doc)
	if err != nil {
		return err
	}
	if ok {
		d.known = doc
	}
	return nil
}

func (d *NewMatchPathValue) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		d.stats.Observe(false)
		return false
	}
	d.stats.Observe(true)
	now := time.Now()
	learning := d.learn.Learning(now)
	newlySeen := false
	for _, path := range tree.Paths() {
		el := tree.GetElement(path)
		if el == nil {
			continue
		}
		values, ok := d.known[path]
		if !ok {
			values = make(map[string]bool)
			d.known[path] = values
		}
		v := el.Value.String()
		if values[v] {
			continue
		}
		newlySeen = true
		if learning {
			values[v] = true
		} else {
			emit(d.sink, d.name, "new value observed at "+path, rawLogLine(a),
				eventComponentForPath(path, v), a)
		}
	}
	if newlySeen && learning {
		d.learn.ObserveExtension(now)
	}
	return true
}

func eventComponentForPath(path, value string) event.AnalysisComponent {
	return event.AnalysisComponent{AffectedLogAtomPaths: []string{path}, AffectedLogAtomValues: []string{value}}
}
