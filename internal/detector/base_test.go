// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detector

import (
	"testing"
	"time"
)

func TestLearnStateLocksAtAbsoluteDeadline(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewLearnState(true, now.Add(time.Minute), 0)

	if !s.Learning(now) {
		t.Fatal("Learning() = false before deadline, want true")
	}
	if s.Locked() {
		t.Fatal("Locked() = true before deadline, want false")
	}
	if s.Learning(now.Add(2 * time.Minute)) {
		t.Fatal("Learning() = true after deadline, want false")
	}
	if !s.Locked() {
		t.Fatal("Locked() = false after deadline crossed, want true")
	}
	// Once locked, stays locked even if time moves back within range.
	if s.Learning(now) {
		t.Fatal("Learning() = true for a locked detector, want false")
	}
}

func TestLearnStateSlidingWindowResetsOnExtension(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewLearnState(true, time.Time{}, 10*time.Minute)

	if !s.Learning(now.Add(5 * time.Minute)) {
		t.Fatal("Learning() = false within initial window, want true")
	}
	s.ObserveExtension(now.Add(5 * time.Minute))
	// Deadline pushed to now+15m; at now+12m should still be learning.
	if !s.Learning(now.Add(12 * time.Minute)) {
		t.Fatal("Learning() = false after extension reset the window, want true")
	}
	if s.Learning(now.Add(16 * time.Minute)) {
		t.Fatal("Learning() = true past the reset deadline, want false")
	}
}

func TestLearnStateNeverLearnsWhenDeclaredOff(t *testing.T) {
	s := NewLearnState(false, time.Time{}, 0)
	if s.Learning(time.Now()) {
		t.Fatal("Learning() = true for a detector declared learn=false, want false")
	}
	if !s.Locked() {
		t.Fatal("Locked() = false for a detector declared learn=false, want true")
	}
}

func TestLearnModeResolve(t *testing.T) {
	cases := []struct {
		mode     LearnMode
		declared bool
		want     bool
	}{
		{LearnModeUnset, true, true},
		{LearnModeUnset, false, false},
		{LearnModeForceOn, false, true},
		{LearnModeForceOff, true, false},
	}
	for _, c := range cases {
		if got := c.mode.Resolve(c.declared); got != c.want {
			t.Errorf("LearnMode(%d).Resolve(%v) = %v, want %v", c.mode, c.declared, got, c.want)
		}
	}
}

func TestStatsSnapshotResets(t *testing.T) {
	var s Stats
	s.Observe(true)
	s.Observe(false)
	s.Observe(true)

	total, success := s.Snapshot()
	if total != 3 || success != 2 {
		t.Fatalf("Snapshot() = (%d, %d), want (3, 2)", total, success)
	}
	total, success = s.Snapshot()
	if total != 0 || success != 0 {
		t.Fatalf("Snapshot() after reset = (%d, %d), want (0, 0)", total, success)
	}
}
