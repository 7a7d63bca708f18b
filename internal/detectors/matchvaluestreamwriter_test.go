// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"bytes"
	"testing"
)

func TestMatchValueStreamWriterJoinsFieldsBySeparator(t *testing.T) {
	var buf bytes.Buffer
	w := NewMatchValueStreamWriter([]string{"host", "level"}, ",", &buf)

	if !w.ReceiveAtom(multiBytesAtom("l1", []string{"host", "level"}, []string{"a", "WARN"})) {
		t.Fatal("MatchValueStreamWriter must always report handled=true")
	}
	if got, want := buf.String(), "a,WARN\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestMatchValueStreamWriterDefaultsSeparatorToTab(t *testing.T) {
	var buf bytes.Buffer
	w := NewMatchValueStreamWriter([]string{"host", "level"}, "", &buf)
	w.ReceiveAtom(multiBytesAtom("l1", []string{"host", "level"}, []string{"a", "WARN"}))
	if got, want := buf.String(), "a\tWARN\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestMatchValueStreamWriterMissingPathLeavesFieldBlank(t *testing.T) {
	var buf bytes.Buffer
	w := NewMatchValueStreamWriter([]string{"host", "missing"}, ",", &buf)
	w.ReceiveAtom(bytesAtom("l1", "host", "a"))
	if got, want := buf.String(), "a,\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
