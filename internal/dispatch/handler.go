// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch implements the Dispatch Fabric (§4.3): the fan-out and
// filter chain that delivers Log Atoms to detectors.
package dispatch

import "github.com/clusterwatch/sentryd/internal/atom"

// Handler receives one Atom and reports whether it handled it. The bool is
// handled/not-handled, never anomaly/not-anomaly (§4.4): a detector that
// inspects an atom and finds nothing anomalous still returns true.
type Handler interface {
	ReceiveAtom(a *atom.Atom) bool
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(a *atom.Atom) bool

func (f HandlerFunc) ReceiveAtom(a *atom.Atom) bool { return f(a) }
