// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/detector/rule"
	"github.com/clusterwatch/sentryd/internal/event"
)

// AllowlistViolation holds an ordered list of rule.Rule objects. On each
// atom, it evaluates rules in order until one matches; if none matches,
// it emits a violation (§4.4), grounded directly on
// AllowlistViolationDetector.receive_atom's "iterate rules, first match
// wins" control flow.
type AllowlistViolation struct {
	base
	Rules []rule.Rule
}

// NewAllowlistViolation builds an AllowlistViolation detector over rules,
// evaluated in the given order.
func NewAllowlistViolation(name string, rules []rule.Rule, sink event.Sink) *AllowlistViolation {
	r := make([]rule.Rule, len(rules))
	copy(r, rules)
	return &AllowlistViolation{base: base{name: name, sink: sink}, Rules: r}
}

func (d *AllowlistViolation) ReceiveAtom(a *atom.Atom) bool {
	for _, r := range d.Rules {
		if r.Match(a) {
			d.stats.Observe(true)
			return true
		}
	}
	d.stats.Observe(false)
	emit(d.sink, d.name, "no allowlisting for current atom", rawLogLine(a),
		event.AnalysisComponent{AffectedLogAtomPaths: affectedPaths(a), AffectedLogAtomValues: rawLogLine(a)}, a)
	return false
}
