// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/detector/rule"
)

func TestAllowlistViolationEmitsWhenNoRuleMatches(t *testing.T) {
	sink := &collectingSink{}
	d := NewAllowlistViolation("AllowlistViolationDetector",
		[]rule.Rule{rule.ValueMatch{Path: "level", Value: "INFO"}}, sink)

	if !d.ReceiveAtom(bytesAtom("l1", "level", "INFO")) {
		t.Error("expected handled=true when a rule matches")
	}
	if sink.count() != 0 {
		t.Fatal("a matching rule should never emit")
	}

	if d.ReceiveAtom(bytesAtom("l2", "level", "ERROR")) {
		t.Error("expected handled=false when no rule matches")
	}
	if sink.count() != 1 {
		t.Fatalf("got %d events, want 1 when no rule matches", sink.count())
	}
}
