// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"
	"time"

	"github.com/clusterwatch/sentryd/internal/detector/rule"
)

func pairAtoms(a rule.Rule, b rule.Rule, window time.Duration, hysteresis float64) CorrelationPair {
	return CorrelationPair{Name: "start-then-stop", A: a, B: b, Window: window, HysteresisFactor: hysteresis}
}

func TestTimeCorrelationViolationEmitsWhenBNeverArrivesInTime(t *testing.T) {
	sink := &collectingSink{}
	start := rule.ValueMatch{Path: "event", Value: "start"}
	stop := rule.ValueMatch{Path: "event", Value: "stop"}
	d := NewTimeCorrelationViolation("TimeCorrelationViolationDetector",
		[]CorrelationPair{pairAtoms(start, stop, 5*time.Second, 0)}, sink)

	d.ReceiveAtom(timestampedEventAtom("l1", "start", 0))
	d.ReceiveAtom(timestampedEventAtom("l2", "other", 100))
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 once the window elapses with no B", sink.count())
	}
}

func TestTimeCorrelationViolationNoEmitWhenBArrivesInTime(t *testing.T) {
	sink := &collectingSink{}
	start := rule.ValueMatch{Path: "event", Value: "start"}
	stop := rule.ValueMatch{Path: "event", Value: "stop"}
	d := NewTimeCorrelationViolation("TimeCorrelationViolationDetector",
		[]CorrelationPair{pairAtoms(start, stop, 5*time.Second, 0)}, sink)

	d.ReceiveAtom(timestampedEventAtom("l1", "start", 0))
	d.ReceiveAtom(timestampedEventAtom("l2", "stop", 2))
	if sink.count() != 0 {
		t.Fatal("B arriving inside the window should never emit")
	}
}

func TestTimeCorrelationViolationHysteresisExtendsDeadline(t *testing.T) {
	sink := &collectingSink{}
	start := rule.ValueMatch{Path: "event", Value: "start"}
	stop := rule.ValueMatch{Path: "event", Value: "stop"}
	d := NewTimeCorrelationViolation("TimeCorrelationViolationDetector",
		[]CorrelationPair{pairAtoms(start, stop, 5*time.Second, 1.0)}, sink)

	d.ReceiveAtom(timestampedEventAtom("l1", "start", 0))
	// 8s > plain window (5s) but within the hysteresis-extended one (10s).
	d.ReceiveAtom(timestampedEventAtom("l2", "other", 8))
	if sink.count() != 0 {
		t.Fatal("hysteresis slack should suppress a violation inside the extended deadline")
	}
}
