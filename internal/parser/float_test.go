// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "testing"

func TestFloatCases(t *testing.T) {
	tests := []struct {
		name     string
		exp      ExponentPolicy
		input    string
		wantOK   bool
		wantVal  float64
		wantCons int
	}{
		{"plain decimal", ExponentNone, "3.14 rest", true, 3.14, 4},
		{"negative", ExponentNone, "-3.14 rest", true, -3.14, 5},
		{"integer only", ExponentNone, "42 rest", true, 42, 2},
		{"optional exponent present", ExponentOptional, "1.5e10rest", true, 1.5e10, 6},
		{"optional exponent absent", ExponentOptional, "1.5rest", true, 1.5, 3},
		{"mandatory exponent missing", ExponentMandatory, "1.5rest", false, 0, 0},
		{"no digits", ExponentNone, "rest", false, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFloat("n", SignOptional, PadNone, tc.exp)
			res, err := ParseRoot(f, []byte(tc.input))
			if !tc.wantOK {
				if err == nil {
					t.Fatalf("Parse() succeeded, want failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if res.Element.Value.Float != tc.wantVal {
				t.Errorf("Float = %v, want %v", res.Element.Value.Float, tc.wantVal)
			}
			if res.Consumed != tc.wantCons {
				t.Errorf("Consumed = %d, want %d", res.Consumed, tc.wantCons)
			}
		})
	}
}
