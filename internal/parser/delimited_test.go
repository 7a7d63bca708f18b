// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "testing"

func TestDelimitedConsumesToDelimiter(t *testing.T) {
	d := NewDelimited("field", ',', 0, true)
	res, err := ParseRoot(d, []byte("hello,world"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Consumed != 6 {
		t.Errorf("Consumed = %d, want 6 (includes delimiter)", res.Consumed)
	}
	if got := res.Element.Value.String(); got != "hello" {
		t.Errorf("Value = %q, want %q", got, "hello")
	}
}

func TestDelimitedHonorsEscape(t *testing.T) {
	d := NewDelimited("field", ',', '\\', true)
	res, err := ParseRoot(d, []byte(`a\,b,rest`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Element.Value.String(); got != "a,b" {
		t.Errorf("Value = %q, want %q", got, "a,b")
	}
}

func TestDelimitedEndOfInputWithoutDelimiter(t *testing.T) {
	d := NewDelimited("field", ',', 0, true)
	res, err := ParseRoot(d, []byte("lastfield"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Consumed != len("lastfield") {
		t.Errorf("Consumed = %d, want %d", res.Consumed, len("lastfield"))
	}
}
