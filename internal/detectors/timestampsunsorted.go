// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"fmt"
	"os"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/event"
)

// TimestampsUnsorted is stateless except for lastTimestamp. It emits when
// a parsed timestamp is strictly less than the last accepted one.
// ExitOnError terminates the process immediately instead of continuing
// cooperative shutdown, mirroring TimestampsUnsortedDetector's
// exit_on_error_flag (§4.4).
type TimestampsUnsorted struct {
	base
	ExitOnError   bool
	lastTimestamp float64
	haveLast      bool
}

// NewTimestampsUnsorted builds a TimestampsUnsorted detector.
func NewTimestampsUnsorted(name string, sink event.Sink, exitOnError bool) *TimestampsUnsorted {
	return &TimestampsUnsorted{base: base{name: name, sink: sink}, ExitOnError: exitOnError}
}

func (d *TimestampsUnsorted) ReceiveAtom(a *atom.Atom) bool {
	ts, ok := a.Timestamp()
	if !ok {
		return false
	}
	d.stats.Observe(true)

	if d.haveLast && ts < d.lastTimestamp {
		last := time.Unix(int64(d.lastTimestamp), 0).UTC()
		cur := time.Unix(int64(ts), 0).UTC()
		emit(d.sink, d.name,
			fmt.Sprintf("timestamp %s below %s", cur.Format(time.RFC3339), last.Format(time.RFC3339)),
			rawLogLine(a),
			event.AnalysisComponent{Extra: map[string]any{"LastTimestamp": d.lastTimestamp}}, a)
		if d.ExitOnError {
			os.Exit(1)
		}
		return true
	}
	d.lastTimestamp = ts
	d.haveLast = true
	return true
}
