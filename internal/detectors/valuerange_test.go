// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/detector"
)

func TestValueRangeLearnsThenEmitsOutsideRange(t *testing.T) {
	sink := &collectingSink{}
	d := NewValueRange(ValueRangeConfig{
		Name:           "ValueRangeDetector",
		TargetPathList: []string{"temp"},
		Sink:           sink,
		LearnMode:      detector.LearnModeForceOn,
		DeclaredLearn:  true,
	})

	d.ReceiveAtom(intAtom("l1", "temp", 10))
	d.ReceiveAtom(intAtom("l2", "temp", 20))
	if sink.count() != 0 {
		t.Fatal("learning detector should never emit, it only extends the range")
	}

	d.learn = detector.NewLearnState(false, noLearnDeadline, 0)
	d.ReceiveAtom(intAtom("l3", "temp", 15))
	if sink.count() != 0 {
		t.Fatal("a value inside the learned range should not emit")
	}
	d.ReceiveAtom(intAtom("l4", "temp", 99))
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 for a value outside the learned range", sink.count())
	}
}

func TestValueRangeIgnoreListSkipsAtom(t *testing.T) {
	sink := &collectingSink{}
	d := NewValueRange(ValueRangeConfig{
		Name:           "ValueRangeDetector",
		TargetPathList: []string{"temp"},
		IgnoreList:     []string{"debug"},
		Sink:           sink,
		LearnMode:      detector.LearnModeForceOff,
		DeclaredLearn:  true,
	})
	a := multiBytesAtom("l1", []string{"temp", "debug"}, []string{"10", "x"})
	d.ReceiveAtom(a)
	if sink.count() != 0 {
		t.Error("an atom containing an ignore-listed path must be skipped entirely")
	}
}

func TestValueRangeConstraintListSkipsAtomMissingConstraint(t *testing.T) {
	d := NewValueRange(ValueRangeConfig{
		Name:           "ValueRangeDetector",
		TargetPathList: []string{"temp"},
		ConstraintList: []string{"host"},
		LearnMode:      detector.LearnModeForceOn,
		DeclaredLearn:  true,
	})
	if !d.ReceiveAtom(floatAtom("l1", "temp", 1.5)) {
		t.Fatal("expected handled=true even when skipped for a missing constraint path")
	}
	if len(d.ranges) != 0 {
		t.Error("an atom missing a required constraint path should never extend the range")
	}
}
