// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

const defaultMaxTimeJumpSeconds = 86400

// DateTime tries a list of Go reference-layout format strings in declared
// order and accepts the first that parses (§4.1). It tracks the last
// accepted timestamp per node instance: an observation that jumps by more
// than MaxTimeJumpSeconds relative to the last accepted timestamp of this
// node fails to parse, signalling a probable format or timezone error
// (§4.1, §9 Open Question: per-parser-instance, last-accepted-timestamp
// semantics). When a format omits the year, StartYear seeds the inferred
// year and successive observations advance it monotonically, detecting
// new-year wraparound.
//
// Multiple sources may drive the same Parser Model concurrently (§4.2
// multi-source mode); Parse is guarded by a mutex so the per-node timestamp
// state stays consistent.
type DateTime struct {
	leaf
	Formats             []string
	Location            *time.Location
	MaxTimeJumpSeconds   int64
	StartYear            int
	TimestampScale       float64

	mu            sync.Mutex
	haveLast      bool
	lastTimestamp float64
	inferredYear  int
}

func NewDateTime(id string, formats []string, loc *time.Location, maxJump int64, startYear int, scale float64) *DateTime {
	if loc == nil {
		loc = time.UTC
	}
	if maxJump <= 0 {
		maxJump = defaultMaxTimeJumpSeconds
	}
	if scale <= 0 {
		scale = 1
	}
	return &DateTime{
		leaf:               leaf{id: id, typeName: "datetime"},
		Formats:            formats,
		Location:           loc,
		MaxTimeJumpSeconds: maxJump,
		StartYear:          startYear,
		TimestampScale:     scale,
		inferredYear:       startYear,
	}
}

func layoutHasYear(layout string) bool {
	return strings.Contains(layout, "2006") || strings.Contains(layout, "06")
}

func (d *DateTime) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	remaining := len(data) - offset
	if remaining <= 0 {
		return nil, ErrNoMatch
	}

	for _, layout := range d.Formats {
		base := len(layout)
		lo := base - 2
		if lo < 1 {
			lo = 1
		}
		hi := base + 2
		if hi > remaining {
			hi = remaining
		}
		for length := lo; length <= hi; length++ {
			candidate := string(data[offset : offset+length])
			t, err := time.ParseInLocation(layout, candidate, d.Location)
			if err != nil {
				continue
			}

			hasYear := layoutHasYear(layout)
			year := t.Year()
			if !hasYear {
				year = d.resolveInferredYear(t)
				t = time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), d.Location)
			}

			ts := (float64(t.Unix()) + float64(t.Nanosecond())/1e9) * d.TimestampScale
			if d.haveLast {
				jump := ts - d.lastTimestamp
				if jump < 0 {
					jump = -jump
				}
				if jump > float64(d.MaxTimeJumpSeconds) {
					return nil, fmt.Errorf("parser: %q jumped %.0fs from last accepted timestamp, exceeds max_time_jump_seconds=%d", d.id, jump, d.MaxTimeJumpSeconds)
				}
			}
			d.lastTimestamp = ts
			d.haveLast = true
			if !hasYear {
				d.inferredYear = year
			}

			path := matchtree.JoinPath(parentPath, d.id)
			el := matchtree.New(path, data[offset:offset+length], matchtree.TimestampValue(ts), d)
			return &Result{Consumed: length, Element: el, Tree: singleTree(path, el)}, nil
		}
	}
	return nil, ErrNoMatch
}

// resolveInferredYear picks the year for a year-less timestamp: the node's
// running inferredYear, advanced by one if using it would make the new
// observation appear to move backward in time relative to the last accepted
// timestamp (wraparound across a year boundary).
func (d *DateTime) resolveInferredYear(t time.Time) int {
	year := d.inferredYear
	if !d.haveLast {
		return year
	}
	candidate := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), d.Location)
	if float64(candidate.Unix()) < d.lastTimestamp-float64(d.MaxTimeJumpSeconds)/2 {
		return year + 1
	}
	return year
}
