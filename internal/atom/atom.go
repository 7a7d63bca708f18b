// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package atom implements the Log Atom (§3): the immutable bundle the
// Atomizer hands to the Dispatch Fabric, and that every detector's
// receive_atom observes without mutating (§3 invariant ii).
package atom

import "github.com/clusterwatch/sentryd/internal/matchtree"

// SourceID identifies the byte stream an Atom came from. Opaque to
// everything except the multisource synchroniser and log lines.
type SourceID string

// Atom is immutable after construction: raw bytes, an optional Match Tree
// (nil when parsing failed), an optional timestamp, the originating
// SourceID, and which Match Tree path (if any) supplied the timestamp.
type Atom struct {
	raw           []byte
	tree          *matchtree.Tree
	hasTimestamp  bool
	timestamp     float64
	source        SourceID
	timestampPath string
}

// New constructs a parsed Atom. tree is nil when the Parser Model did not
// match raw; timestampPath, when non-empty and tree is non-nil, names the
// path whose decoded timestamp value populated Timestamp.
func New(raw []byte, tree *matchtree.Tree, source SourceID, timestampPath string) *Atom {
	a := &Atom{raw: raw, tree: tree, source: source}
	if tree != nil && timestampPath != "" {
		if el := tree.GetElement(timestampPath); el != nil && el.Value.Kind == matchtree.KindTimestamp {
			a.timestamp = el.Value.Timestamp
			a.hasTimestamp = true
			a.timestampPath = timestampPath
		}
	}
	return a
}

// Raw returns the unparsed byte slice this Atom was built from. Callers
// must not modify it; Atom owns no copy beyond what the Atomizer gave it.
func (a *Atom) Raw() []byte { return a.raw }

// Tree returns the Match Tree produced by the Parser Model, or nil if
// parsing failed for this line.
func (a *Atom) Tree() *matchtree.Tree { return a.tree }

// Parsed reports whether the Parser Model matched this Atom's raw bytes.
func (a *Atom) Parsed() bool { return a.tree != nil }

// Timestamp returns the Atom's resolved timestamp (seconds since epoch,
// sub-second precision in the fractional part) and whether one was
// resolved at all.
func (a *Atom) Timestamp() (float64, bool) { return a.timestamp, a.hasTimestamp }

// Source returns the originating SourceID.
func (a *Atom) Source() SourceID { return a.source }

// WithTimestamp returns a shallow copy of a with its resolved Timestamp
// replaced by ts. Used by dispatch-chain transformers (Monotonic
// Timestamp Adjust) that must rewrite the timestamp without touching the
// underlying Match Tree every later handler still observes.
func (a *Atom) WithTimestamp(ts float64) *Atom {
	cp := *a
	cp.timestamp = ts
	cp.hasTimestamp = true
	return &cp
}

// TimestampPath returns the Match Tree path that supplied Timestamp, or ""
// if none did (parsing failed, or the pipeline's default-timestamp path
// did not resolve for this atom).
func (a *Atom) TimestampPath() string { return a.timestampPath }
