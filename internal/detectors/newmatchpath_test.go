// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/detector"
)

func TestNewMatchPathLearnsThenEmitsOnNewPath(t *testing.T) {
	sink := &collectingSink{}
	store := newFakeStore()
	d := NewNewMatchPath("NewMatchPathDetector", "p1", sink, store, detector.LearnModeUnset, true, noLearnDeadline, 0)

	a1 := bytesAtom("line1", "level", "WARN")
	if !d.ReceiveAtom(a1) {
		t.Fatal("expected handled=true")
	}
	if sink.count() != 0 {
		t.Fatal("learning detector should not emit for a new path")
	}

	// Lock learning, then a genuinely new path should emit.
	d.learn = detector.NewLearnState(false, noLearnDeadline, 0)
	a2 := bytesAtom("line2", "other", "X")
	d.ReceiveAtom(a2)
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 after learning locked", sink.count())
	}

	// The already-known path should not emit again.
	d.ReceiveAtom(bytesAtom("line3", "level", "ERROR"))
	if sink.count() != 1 {
		t.Fatalf("got %d events, want still 1 for a known path", sink.count())
	}
}

func TestNewMatchPathUnparsedAtomNotHandled(t *testing.T) {
	d := NewNewMatchPath("NewMatchPathDetector", "p1", nil, nil, detector.LearnModeUnset, true, noLearnDeadline, 0)
	if d.ReceiveAtom(unparsedAtom("garbage")) {
		t.Error("unparsed atom should not be handled")
	}
}

func TestNewMatchPathPersistRoundTrip(t *testing.T) {
	store := newFakeStore()
	d := NewNewMatchPath("NewMatchPathDetector", "p1", nil, store, detector.LearnModeForceOn, true, noLearnDeadline, 0)
	d.ReceiveAtom(bytesAtom("line1", "level", "WARN"))
	if err := d.DoPersist(); err != nil {
		t.Fatalf("DoPersist() error = %v", err)
	}

	d2 := NewNewMatchPath("NewMatchPathDetector", "p1", nil, store, detector.LearnModeUnset, false, noLearnDeadline, 0)
	if err := d2.LoadPersistenceData(); err != nil {
		t.Fatalf("LoadPersistenceData() error = %v", err)
	}
	if !d2.known["level"] {
		t.Error("expected path 'level' to survive the persist/load round trip")
	}
}
