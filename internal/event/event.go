// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package event implements Event Emission (§4.7): the envelope a detector
// hands every configured Sink when it flags an anomaly.
package event

import (
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
)

// AnalysisComponent is the structured, detector-specific payload every
// Event carries, always including the affected Match Tree paths and their
// decoded values when applicable (§4.7).
type AnalysisComponent struct {
	AffectedLogAtomPaths  []string `json:"AffectedLogAtomPaths,omitempty"`
	AffectedLogAtomValues []string `json:"AffectedLogAtomValues,omitempty"`
	// FromTime/ToTime populate interval reports (histograms, parser-count).
	FromTime *time.Time     `json:"FromTime,omitempty"`
	ToTime   *time.Time     `json:"ToTime,omitempty"`
	Extra    map[string]any `json:"-"`
}

// Event is what a detector hands to every configured Sink (§4.7): the
// source tag "Analysis.<DetectorName>", a human message, pre-formatted
// sorted log lines, the structured payload, and the originating Atom.
type Event struct {
	Source            string
	Message           string
	SortedLogLines    []string
	AnalysisComponent AnalysisComponent
	Atom              *atom.Atom
	DetectorName      string
}

// SourceTag formats the "Analysis.<DetectorName>" source tag used in
// Source (§4.7).
func SourceTag(detectorName string) string {
	return "Analysis." + detectorName
}

// New builds an Event with Source already set from detectorName.
func New(detectorName, message string, sortedLogLines []string, comp AnalysisComponent, a *atom.Atom) Event {
	return Event{
		Source:            SourceTag(detectorName),
		Message:           message,
		SortedLogLines:    sortedLogLines,
		AnalysisComponent: comp,
		Atom:              a,
		DetectorName:      detectorName,
	}
}

// Sink receives Events. Implementations must be internally thread-safe or
// rely on the pipeline serialising calls (§5): sentryd's pipeline always
// calls sinks from the single dispatch goroutine, so most Sink
// implementations need no locking of their own.
type Sink interface {
	ReceiveEvent(e Event) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(e Event) error

func (f SinkFunc) ReceiveEvent(e Event) error { return f(e) }
