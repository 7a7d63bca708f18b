// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/detector"
)

func TestMatchValueAverageChangeEmitsOnDeviation(t *testing.T) {
	sink := &collectingSink{}
	d := NewMatchValueAverageChange(MatchValueAverageChangeConfig{
		Name:           "MatchValueAverageChangeDetector",
		TargetPathList: []string{"latency"},
		Sigma:          3,
		MinSamples:     2,
		Sink:           sink,
		LearnMode:      detector.LearnModeForceOn,
		DeclaredLearn:  true,
	})
	for _, v := range []int64{10, 11, 9, 10, 11, 9} {
		d.ReceiveAtom(intAtom("l", "latency", v))
	}
	if sink.count() != 0 {
		t.Fatal("values close to the mean should never emit")
	}
	d.ReceiveAtom(intAtom("l", "latency", 1000))
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 for a wildly deviating value", sink.count())
	}
}

func TestMatchValueAverageChangeIgnoresBelowMinSamples(t *testing.T) {
	sink := &collectingSink{}
	d := NewMatchValueAverageChange(MatchValueAverageChangeConfig{
		Name:           "MatchValueAverageChangeDetector",
		TargetPathList: []string{"latency"},
		MinSamples:     5,
		Sink:           sink,
		LearnMode:      detector.LearnModeForceOn,
		DeclaredLearn:  true,
	})
	d.ReceiveAtom(intAtom("l1", "latency", 1))
	d.ReceiveAtom(intAtom("l2", "latency", 1000))
	if sink.count() != 0 {
		t.Fatal("below MinSamples, the detector should still be accumulating, not judging")
	}
}
