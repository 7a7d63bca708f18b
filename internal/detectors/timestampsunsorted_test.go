// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/matchtree"
)

func timestampAtom(raw string, ts float64) *atom.Atom {
	tr := matchtree.NewTree()
	tr.Set("ts", matchtree.New("ts", nil, matchtree.TimestampValue(ts), stubNode{id: "ts"}))
	return atom.New([]byte(raw), tr, "test", "ts")
}

func TestTimestampsUnsortedEmitsOnRegression(t *testing.T) {
	sink := &collectingSink{}
	d := NewTimestampsUnsorted("TimestampsUnsortedDetector", sink, false)

	if !d.ReceiveAtom(timestampAtom("l1", 100)) {
		t.Fatal("expected handled=true")
	}
	d.ReceiveAtom(timestampAtom("l2", 200))
	if sink.count() != 0 {
		t.Fatal("an increasing timestamp should not emit")
	}
	d.ReceiveAtom(timestampAtom("l3", 150))
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 for a regressed timestamp", sink.count())
	}
}

func TestTimestampsUnsortedNoTimestampNotHandled(t *testing.T) {
	d := NewTimestampsUnsorted("TimestampsUnsortedDetector", nil, false)
	if d.ReceiveAtom(unparsedAtom("garbage")) {
		t.Error("an atom with no resolved timestamp should not be handled")
	}
}
