// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "testing"

func TestSequenceMatchesChildrenInOrder(t *testing.T) {
	seq := NewSequence("request", []Node{
		NewFixedWordlist("method", [][]byte{[]byte("GET"), []byte("POST")}),
		NewFixed("sp1", []byte(" ")),
		NewVariableByte("path", []byte("abcdefghijklmnopqrstuvwxyz/."), 1),
	})
	res, err := ParseRoot(seq, []byte("GET /index.html"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Consumed != len("GET /index.html") {
		t.Errorf("Consumed = %d, want %d", res.Consumed, len("GET /index.html"))
	}
	if el := res.Tree.GetElement("request/method"); el == nil || el.Value.String() != "GET" {
		t.Errorf("request/method = %v, want GET", el)
	}
	if el := res.Tree.GetElement("request/path"); el == nil || el.Value.String() != "/index.html" {
		t.Errorf("request/path = %v, want /index.html", el)
	}
	if res.Tree.GetElement("request") == nil {
		t.Error("sequence did not register its own element at its own path")
	}
}

func TestSequenceFailsOnFirstMismatchWithNoTreeSideEffect(t *testing.T) {
	seq := NewSequence("request", []Node{
		NewFixed("method", []byte("GET")),
		NewFixed("sp1", []byte(" ")),
	})
	_, err := seq.Parse([]byte("GET/index.html"), 0, "", nil)
	if err == nil {
		t.Fatal("Parse() succeeded, want failure (missing space)")
	}
}
