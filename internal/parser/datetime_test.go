// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"testing"
	"time"
)

func TestDateTimeParsesFirstMatchingFormat(t *testing.T) {
	d := NewDateTime("ts", []string{"2006-01-02 15:04:05", time.RFC3339}, time.UTC, 0, 2024, 1)
	res, err := ParseRoot(d, []byte("2024-03-01 12:00:00 extra"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want, _ := time.ParseInLocation("2006-01-02 15:04:05", "2024-03-01 12:00:00", time.UTC)
	if res.Element.Value.Timestamp != float64(want.Unix()) {
		t.Errorf("Timestamp = %v, want %v", res.Element.Value.Timestamp, float64(want.Unix()))
	}
}

func TestDateTimeRejectsLargeJump(t *testing.T) {
	d := NewDateTime("ts", []string{"2006-01-02 15:04:05"}, time.UTC, 60, 2024, 1)
	if _, err := ParseRoot(d, []byte("2024-03-01 12:00:00")); err != nil {
		t.Fatalf("first Parse() error = %v", err)
	}
	_, err := ParseRoot(d, []byte("2024-03-01 13:00:00"))
	if err == nil {
		t.Fatalf("second Parse() succeeded, want failure (jump exceeds max_time_jump_seconds)")
	}
}

func TestDateTimeInfersYearAcrossWraparound(t *testing.T) {
	d := NewDateTime("ts", []string{"Jan 2 15:04:05"}, time.UTC, 3*86400, 2023, 1)
	first, err := ParseRoot(d, []byte("Dec 31 23:59:00"))
	if err != nil {
		t.Fatalf("first Parse() error = %v", err)
	}
	second, err := ParseRoot(d, []byte("Jan 1 00:01:00"))
	if err != nil {
		t.Fatalf("second Parse() error = %v", err)
	}
	if second.Element.Value.Timestamp <= first.Element.Value.Timestamp {
		t.Errorf("wraparound did not advance the inferred year: first=%v second=%v",
			first.Element.Value.Timestamp, second.Element.Value.Timestamp)
	}
}
