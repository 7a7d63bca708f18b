// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/matchtree"
)

type stubNode struct{}

func (stubNode) ElementID() string { return "level" }
func (stubNode) TypeName() string  { return "fixed" }

func newTestAtom(path, value string) *atom.Atom {
	tr := matchtree.NewTree()
	tr.Set(path, matchtree.New(path, []byte(value), matchtree.BytesValue([]byte(value)), stubNode{}))
	return atom.New([]byte(value), tr, "test", "")
}

func TestSubhandlerFilterStopsAfterFirstMatch(t *testing.T) {
	calls := 0
	h1 := HandlerFunc(func(a *atom.Atom) bool { calls++; return true })
	h2 := HandlerFunc(func(a *atom.Atom) bool { calls++; return true })
	f := NewSubhandlerFilter([]Handler{h1, h2}, true)

	if !f.ReceiveAtom(newTestAtom("level", "WARN")) {
		t.Error("ReceiveAtom() = false, want true")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (stop after first match)", calls)
	}
}

func TestSubhandlerFilterRunsAllWithoutStopFlag(t *testing.T) {
	calls := 0
	h := HandlerFunc(func(a *atom.Atom) bool { calls++; return true })
	f := NewSubhandlerFilter([]Handler{h, h, h}, false)
	f.ReceiveAtom(newTestAtom("level", "WARN"))
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestMatchFilterByPathOnly(t *testing.T) {
	called := false
	inner := HandlerFunc(func(a *atom.Atom) bool { called = true; return true })
	f := NewMatchFilter("level", inner)

	if !f.ReceiveAtom(newTestAtom("level", "WARN")) || !called {
		t.Error("expected match on path presence")
	}
	called = false
	if f.ReceiveAtom(newTestAtom("other", "WARN")) || called {
		t.Error("expected no match when path absent")
	}
}

func TestMatchFilterByValue(t *testing.T) {
	inner := HandlerFunc(func(a *atom.Atom) bool { return true })
	f := NewMatchValueFilter("level", "WARN", inner)

	if !f.ReceiveAtom(newTestAtom("level", "WARN")) {
		t.Error("expected match on exact value")
	}
	if f.ReceiveAtom(newTestAtom("level", "INFO")) {
		t.Error("expected no match on different value")
	}
}

func TestMatchFilterUnparsedAtomNeverMatches(t *testing.T) {
	inner := HandlerFunc(func(a *atom.Atom) bool { return true })
	f := NewMatchFilter("level", inner)
	unparsed := atom.New([]byte("raw"), nil, "test", "")
	if f.ReceiveAtom(unparsed) {
		t.Error("unparsed atom should never match")
	}
}
