// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/detector"
)

func TestEnhancedNewValueComboCountsRepeatedTuples(t *testing.T) {
	d := NewEnhancedNewValueCombo("EnhancedNewValueComboDetector", "p1", []string{"host", "level"}, 0, nil, nil,
		detector.LearnModeForceOn, true, noLearnDeadline, 0)

	a := multiBytesAtom("l1", []string{"host", "level"}, []string{"a", "WARN"})
	d.ReceiveAtom(a)
	d.ReceiveAtom(a)
	d.ReceiveAtom(a)

	rec := d.combos["a\x1fWARN"]
	if rec == nil {
		t.Fatal("expected a combo record for the observed tuple")
	}
	if rec.Count != 3 {
		t.Errorf("Count = %d, want 3", rec.Count)
	}
}

func TestEnhancedNewValueComboExamplesAreBoundedByMaxExamplesPerCombo(t *testing.T) {
	d := NewEnhancedNewValueCombo("EnhancedNewValueComboDetector", "p1", []string{"host", "level"}, 2, nil, nil,
		detector.LearnModeForceOn, true, noLearnDeadline, 0)

	for i := 0; i < 5; i++ {
		d.ReceiveAtom(multiBytesAtom("line", []string{"host", "level"}, []string{"a", "WARN"}))
	}
	rec := d.combos["a\x1fWARN"]
	if len(rec.Examples) != 2 {
		t.Fatalf("got %d examples, want 2 (bounded by MaxExamplesPerCombo)", len(rec.Examples))
	}
}

func TestEnhancedNewValueComboExamplesDisabledByDefault(t *testing.T) {
	d := NewEnhancedNewValueCombo("EnhancedNewValueComboDetector", "p1", []string{"host", "level"}, 0, nil, nil,
		detector.LearnModeForceOn, true, noLearnDeadline, 0)
	d.ReceiveAtom(multiBytesAtom("line", []string{"host", "level"}, []string{"a", "WARN"}))
	rec := d.combos["a\x1fWARN"]
	if len(rec.Examples) != 0 {
		t.Error("MaxExamplesPerCombo=0 should disable example retention entirely")
	}
}

func TestEnhancedNewValueComboEmitsWhenLocked(t *testing.T) {
	sink := &collectingSink{}
	d := NewEnhancedNewValueCombo("EnhancedNewValueComboDetector", "p1", []string{"host", "level"}, 0, sink, nil,
		detector.LearnModeForceOff, true, noLearnDeadline, 0)
	d.ReceiveAtom(multiBytesAtom("line", []string{"host", "level"}, []string{"a", "WARN"}))
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 for an unseen tuple while locked", sink.count())
	}
}
