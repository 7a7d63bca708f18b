// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import "github.com/clusterwatch/sentryd/internal/atom"

// SubhandlerFilter holds an ordered list of Handlers and fans one Atom out
// to them (§4.3). With StopAfterFirstMatch set it stops at the first
// Handler whose ReceiveAtom returns true; otherwise every Handler runs
// regardless of earlier results.
type SubhandlerFilter struct {
	Handlers            []Handler
	StopAfterFirstMatch bool
}

// NewSubhandlerFilter builds a SubhandlerFilter over handlers, copying the
// slice so a later mutation of the caller's slice cannot alias into this
// filter's dispatch order.
func NewSubhandlerFilter(handlers []Handler, stopAfterFirstMatch bool) *SubhandlerFilter {
	h := make([]Handler, len(handlers))
	copy(h, handlers)
	return &SubhandlerFilter{Handlers: h, StopAfterFirstMatch: stopAfterFirstMatch}
}

func (s *SubhandlerFilter) ReceiveAtom(a *atom.Atom) bool {
	handled := false
	for _, h := range s.Handlers {
		if h.ReceiveAtom(a) {
			handled = true
			if s.StopAfterFirstMatch {
				break
			}
		}
	}
	return handled
}
