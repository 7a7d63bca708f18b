// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package timetrigger

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
)

// countingTimer is a detector.TimeTriggered stub that fires on a short
// fixed delay and counts its invocations.
type countingTimer struct {
	calls atomic.Int64
	delay time.Duration
}

func (c *countingTimer) Name() string                        { return "countingTimer" }
func (c *countingTimer) ReceiveAtom(a *atom.Atom) bool        { return false }
func (c *countingTimer) LogStatistics(name string)            {}
func (c *countingTimer) DoTimer(now time.Time) time.Duration {
	c.calls.Add(1)
	return c.delay
}

func TestSchedulerFiresRegisteredDetector(t *testing.T) {
	sched, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := &countingTimer{delay: 5 * time.Millisecond}
	if err := sched.Register("countingTimer", d); err != nil {
		t.Fatalf("Register: %v", err)
	}
	sched.Start()
	defer sched.Shutdown()

	time.Sleep(100 * time.Millisecond)
	if d.calls.Load() < 2 {
		t.Fatalf("got %d DoTimer calls, want at least 2 (one from Register, at least one from the scheduler)", d.calls.Load())
	}
}

func TestSchedulerShutdownStopsFiring(t *testing.T) {
	sched, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := &countingTimer{delay: 5 * time.Millisecond}
	if err := sched.Register("countingTimer", d); err != nil {
		t.Fatalf("Register: %v", err)
	}
	sched.Start()
	time.Sleep(30 * time.Millisecond)
	if err := sched.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	after := d.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if d.calls.Load() != after {
		t.Fatalf("DoTimer kept firing after Shutdown: %d -> %d", after, d.calls.Load())
	}
}
