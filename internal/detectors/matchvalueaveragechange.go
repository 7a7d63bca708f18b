// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"math"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/detector"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/matchtree"
	"github.com/clusterwatch/sentryd/internal/persistence"
)

// runningStats is Welford's online mean/variance algorithm, grounded on
// the same numerically-stable accumulation a rolling metric aggregator
// needs (avoids the naive sum-of-squares approach's catastrophic
// cancellation over long-running streams).
type runningStats struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"m2"`
}

func (s *runningStats) add(x float64) {
	s.Count++
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	delta2 := x - s.Mean
	s.M2 += delta * delta2
}

func (s *runningStats) stddev() float64 {
	if s.Count < 2 {
		return 0
	}
	return math.Sqrt(s.M2 / float64(s.Count-1))
}

// MatchValueAverageChange tracks, per path, a rolling mean and standard
// deviation and emits when a new observation deviates beyond Sigma
// standard deviations from the mean (§4.4).
type MatchValueAverageChange struct {
	base
	persistenceID string
	store         persistence.Store
	paths         []string
	sigma         float64
	minSamples    int64
	learn         *detector.LearnState
	valueStats    map[string]*runningStats
}

// MatchValueAverageChangeConfig collects construction parameters.
type MatchValueAverageChangeConfig struct {
	Name                  string
	PersistenceID         string
	TargetPathList        []string
	Sigma                 float64
	MinSamples            int64
	Sink                  event.Sink
	Store                 persistence.Store
	LearnMode             detector.LearnMode
	DeclaredLearn         bool
	StopLearningTime      time.Time
	StopLearningNoAnomaly time.Duration
}

// NewMatchValueAverageChange builds the detector from cfg. Sigma defaults
// to 3 and MinSamples to 2 (a stddev is undefined below that).
func NewMatchValueAverageChange(cfg MatchValueAverageChangeConfig) *MatchValueAverageChange {
	if cfg.Sigma <= 0 {
		cfg.Sigma = 3
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 2
	}
	return &MatchValueAverageChange{
		base:          base{name: cfg.Name, sink: cfg.Sink},
		persistenceID: cfg.PersistenceID,
		store:         cfg.Store,
		paths:         cfg.TargetPathList,
		sigma:         cfg.Sigma,
		minSamples:    cfg.MinSamples,
		learn:         detector.NewLearnState(cfg.LearnMode.Resolve(cfg.DeclaredLearn), cfg.StopLearningTime, cfg.StopLearningNoAnomaly),
		valueStats:    make(map[string]*runningStats),
	}
}

func (d *MatchValueAverageChange) PersistenceKey() string {
	return persistenceKey("MatchValueAverageChange", d.persistenceID)
}

func (d *MatchValueAverageChange) DoPersist() error {
	if d.store == nil {
		return nil
	}
	return persistence.SaveDoc(d.store, d.PersistenceKey(), d.valueStats)
}

func (d *MatchValueAverageChange) LoadPersistenceData() error {
	if d.store == nil {
		return nil
	}
	var doc map[string]*runningStats
	ok, err := persistence.LoadDoc(d.store, d.PersistenceKey(), &doc)
	if err != nil {
		return err
	}
	if ok {
		d.valueStats = doc
	}
	return nil
}

func numericOf(el *matchtree.Element) (float64, bool) {
	switch el.Value.Kind {
	case matchtree.KindInt:
		return float64(el.Value.Int), true
	case matchtree.KindFloat:
		return el.Value.Float, true
	case matchtree.KindTimestamp:
		return el.Value.Timestamp, true
	default:
		return 0, false
	}
}

func (d *MatchValueAverageChange) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	d.stats.Observe(true)

	now := time.Now()
	learning := d.learn.Learning(now)
	handled := false
	for _, p := range d.paths {
		el := tree.GetElement(p)
		if el == nil {
			continue
		}
		v, ok := numericOf(el)
		if !ok {
			continue
		}
		handled = true
		st, exists := d.valueStats[p]
		if !exists {
			st = &runningStats{}
			d.valueStats[p] = st
		}
		if st.Count >= d.minSamples {
			if dev := math.Abs(v - st.Mean); dev > d.sigma*st.stddev() && st.stddev() > 0 {
				emit(d.sink, d.name, "value deviates beyond configured sigma from rolling mean", rawLogLine(a),
					event.AnalysisComponent{AffectedLogAtomPaths: []string{p}, AffectedLogAtomValues: []string{el.Value.String()}}, a)
				if !learning {
					continue
				}
			}
		}
		if learning {
			st.add(v)
			d.learn.ObserveExtension(now)
		}
	}
	return handled
}
