// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package detectors implements the representative concrete detectors
// named in §4.4: NewMatchPath, NewMatchPathValue,
// NewMatchPathValueCombo, ValueRange, EnhancedNewValueCombo, Histogram,
// MatchValueAverageChange, TimeCorrelationViolation, TimestampsUnsorted,
// AllowlistViolation, ParserCount, Starvation, plus the sidecar
// MatchValueStreamWriter and the dispatch-chain transformer
// MonotonicTimestampAdjust.
package detectors

import (
	"fmt"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/detector"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/logging"
	"github.com/clusterwatch/sentryd/internal/telemetry"
)

// persistenceKey builds the "<DetectorClass>/<persistence-id>" key every
// persistable detector's document is addressed by (§4.6).
func persistenceKey(class, persistenceID string) string {
	if persistenceID == "" {
		persistenceID = "Default"
	}
	return class + "/" + persistenceID
}

// base holds the fields every concrete detector embeds: its configured
// name, event sink, and statistics counter. Learning detectors also embed
// a *detector.LearnState (added per-detector, since not all detectors
// learn).
type base struct {
	name      string
	sink      event.Sink
	stats     detector.Stats
	telemetry telemetry.Recorder
}

func (b *base) Name() string { return b.name }

// SetTelemetry wires a Recorder that LogStatistics reports each snapshot
// through, in addition to logging. Until a pipeline calls this the
// Recorder is nil and LogStatistics only logs, so instrumentation is
// opt-in per build.
func (b *base) SetTelemetry(r telemetry.Recorder) { b.telemetry = r }

// LogStatistics emits log_success/log_total over the last interval and
// resets both counters (§4.4), and forwards the same snapshot to this
// detector's telemetry.Recorder.
func (b *base) LogStatistics(name string) {
	total, success := b.stats.Snapshot()
	logging.Infof("%s: %d/%d atoms handled since last report", name, success, total)
	if b.telemetry != nil {
		b.telemetry.Observe(name, total, success)
	}
}

// affectedPaths extracts the paths present in a's Match Tree, matching
// AnalysisComponent.AffectedLogAtomPaths.
func affectedPaths(a *atom.Atom) []string {
	tree := a.Tree()
	if tree == nil {
		return nil
	}
	return tree.Paths()
}

// rawLogLine renders a's raw bytes as the single-element sorted log line
// list most detectors emit, mirroring receive_atom's
// `data = log_atom.raw_data.decode(...)` / `sorted_log_lines = [data]`
// fallback path.
func rawLogLine(a *atom.Atom) []string {
	return []string{string(a.Raw())}
}

func emit(sink event.Sink, detectorName, message string, lines []string, comp event.AnalysisComponent, a *atom.Atom) {
	if sink == nil {
		return
	}
	if err := sink.ReceiveEvent(event.New(detectorName, message, lines, comp, a)); err != nil {
		logging.Errorf("%s: event delivery failed: %v", detectorName, err)
	}
}

func tupleKey(values []string) string {
	return fmt.Sprintf("%q", values)
}
