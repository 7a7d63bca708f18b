// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import "github.com/clusterwatch/sentryd/internal/atom"

// MonotonicTimestampAdjust is not a detector; it is a dispatch-chain
// transformer that rewrites each atom's timestamp to
// max(atom.timestamp, last_out) before forwarding to Next, enforcing
// monotonicity for every handler downstream of it (§4.4).
type MonotonicTimestampAdjust struct {
	Next    func(a *atom.Atom) bool
	lastOut float64
	have    bool
}

// NewMonotonicTimestampAdjust builds the transformer, forwarding adjusted
// atoms to next.
func NewMonotonicTimestampAdjust(next func(a *atom.Atom) bool) *MonotonicTimestampAdjust {
	return &MonotonicTimestampAdjust{Next: next}
}

func (t *MonotonicTimestampAdjust) ReceiveAtom(a *atom.Atom) bool {
	ts, ok := a.Timestamp()
	if !ok {
		return t.Next(a)
	}
	if t.have && ts < t.lastOut {
		ts = t.lastOut
		a = a.WithTimestamp(ts)
	}
	t.lastOut = ts
	t.have = true
	return t.Next(a)
}
