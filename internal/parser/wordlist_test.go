// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "testing"

func TestFixedWordlistOrderSensitive(t *testing.T) {
	// GET must be declared before G to prove first-match-by-declaration,
	// not longest-match, semantics.
	w := NewFixedWordlist("method", [][]byte{[]byte("GET"), []byte("G")})
	res, err := ParseRoot(w, []byte("GET /index.html"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Consumed != 3 {
		t.Errorf("Consumed = %d, want 3 (GET)", res.Consumed)
	}

	w2 := NewFixedWordlist("method", [][]byte{[]byte("G"), []byte("GET")})
	res2, err := ParseRoot(w2, []byte("GET /index.html"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res2.Consumed != 1 {
		t.Errorf("Consumed = %d, want 1 (G declared first wins)", res2.Consumed)
	}
}

func TestFixedWordlistNoMatch(t *testing.T) {
	w := NewFixedWordlist("method", [][]byte{[]byte("GET"), []byte("POST")})
	if _, err := ParseRoot(w, []byte("PUT /x")); err != ErrNoMatch {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}
