// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "testing"

func TestFixedParseMatch(t *testing.T) {
	f := NewFixed("proto", []byte("HTTP/1.1"))
	res, err := ParseRoot(f, []byte("HTTP/1.1 200 OK"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Consumed != len("HTTP/1.1") {
		t.Errorf("Consumed = %d, want %d", res.Consumed, len("HTTP/1.1"))
	}
	if res.Element.Path != "proto" {
		t.Errorf("Path = %q, want %q", res.Element.Path, "proto")
	}
	if got := res.Element.Value.String(); got != "HTTP/1.1" {
		t.Errorf("Value = %q, want %q", got, "HTTP/1.1")
	}
}

func TestFixedParseMismatch(t *testing.T) {
	f := NewFixed("proto", []byte("HTTP/1.1"))
	if _, err := ParseRoot(f, []byte("HTTP/2.0 200 OK")); err != ErrNoMatch {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestFixedParseShortInput(t *testing.T) {
	f := NewFixed("proto", []byte("HTTP/1.1"))
	if _, err := ParseRoot(f, []byte("HTTP")); err != ErrNoMatch {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}
