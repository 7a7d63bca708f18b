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

// NewMatchPath maintains the set of previously seen Match Tree paths
// (§4.4). While learning, a path never seen before is added to the known
// set and no event is emitted; once learning has stopped, such a path emits
// a "new path" event and is not added.
type NewMatchPath struct {
	base
	persistenceID string
	store         persistence.Store
	learn         *detector.LearnState
	known         map[string]bool
}

// NewNewMatchPath builds a NewMatchPath detector. learnMode resolves the
// declared learn flag against the pipeline's global override at
// construction time (§4.4). store may be nil for a detector that never
// persists (e.g. in short-lived tests).
func NewNewMatchPath(name, persistenceID string, sink event.Sink, store persistence.Store, learnMode detector.LearnMode, declaredLearn bool, stopLearningTime time.Time, stopLearningNoAnomaly time.Duration) *NewMatchPath {
	return &NewMatchPath{
		base:          base{name: name, sink: sink},
		persistenceID: persistenceID,
		store:         store,
		learn:         detector.NewLearnState(learnMode.Resolve(declaredLearn), stopLearningTime, stopLearningNoAnomaly),
		known:         make(map[string]bool),
	}
}

func (d *NewMatchPath) PersistenceKey() string { return persistenceKey("NewMatchPath", d.persistenceID) }

func (d *NewMatchPath) DoPersist() error {
	if d.store == nil {
		return nil
	}
	return persistence.SaveDoc(d.store, d.PersistenceKey(), d.known)
}

func (d *NewMatchPath) LoadPersistenceData() error {
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

func (d *NewMatchPath) ReceiveAtom(a *atom.Atom) bool {
	if !a.Parsed() {
		d.stats.Observe(false)
		return false
	}
	d.stats.Observe(true)
	now := time.Now()
	learning := d.learn.Learning(now)
	newlySeen := false
	for _, path := range affectedPaths(a) {
		if d.known[path] {
			continue
		}
		newlySeen = true
		if learning {
			d.known[path] = true
		}
	}
	if newlySeen {
		if learning {
			d.learn.ObserveExtension(now)
		} else {
			emit(d.sink, d.name, "new path observed", rawLogLine(a),
				event.AnalysisComponent{AffectedLogAtomPaths: affectedPaths(a)}, a)
		}
	}
	return true
}
