// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package matchtree implements the in-memory structured result of one parse
// (Data Model §3: Match Element, Match Tree / match dictionary).
package matchtree

import "fmt"

// Kind discriminates the decoded value carried by an Element.
type Kind int

const (
	// KindBytes is a raw byte-string value (e.g. from Fixed, VariableByte,
	// FixedWordlist nodes).
	KindBytes Kind = iota
	// KindInt is a decoded integer value.
	KindInt
	// KindFloat is a decoded floating point value.
	KindFloat
	// KindTimestamp is seconds since epoch as a float (sub-second precision
	// is preserved in the fractional part).
	KindTimestamp
	// KindList is a value composed of child Elements (Sequence, Repeated,
	// Delimited/KeyValue composites).
	KindList
	// KindAbsent is the sentinel value of an Optional node whose child did
	// not match; zero-length consumption, no data.
	KindAbsent
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTimestamp:
		return "timestamp"
	case KindList:
		return "list"
	case KindAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// NodeRef is the minimal identity a parser node exposes to the match tree,
// avoiding an import cycle between internal/matchtree and internal/parser
// (Design Notes: parsers own their children, strict tree, no sharing).
type NodeRef interface {
	ElementID() string
	TypeName() string
}

// Value is the decoded payload of one Element. Exactly one of the typed
// fields is meaningful, selected by Kind.
type Value struct {
	Kind      Kind
	Bytes     []byte
	Int       int64
	Float     float64
	Timestamp float64
	List      []*Element
}

func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func TimestampValue(ts float64) Value {
	return Value{Kind: KindTimestamp, Timestamp: ts}
}
func ListValue(children []*Element) Value { return Value{Kind: KindList, List: children} }
func AbsentValue() Value                  { return Value{Kind: KindAbsent} }

// Raw returns the value as a plain Go value suitable for an expression
// environment: string for KindBytes, int64/float64 for KindInt/KindFloat/
// KindTimestamp, nil for KindAbsent, and a []any of each child's Raw() for
// KindList.
func (v Value) Raw() any {
	switch v.Kind {
	case KindBytes:
		return string(v.Bytes)
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindTimestamp:
		return v.Timestamp
	case KindList:
		out := make([]any, len(v.List))
		for i, el := range v.List {
			out[i] = el.Value.Raw()
		}
		return out
	default:
		return nil
	}
}

// String renders the value for log lines and debug output.
func (v Value) String() string {
	switch v.Kind {
	case KindBytes:
		return string(v.Bytes)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindTimestamp:
		return fmt.Sprintf("%.6f", v.Timestamp)
	case KindList:
		return fmt.Sprintf("<%d children>", len(v.List))
	case KindAbsent:
		return "<absent>"
	default:
		return "<?>"
	}
}

// Element is one node of a parse result: the path it was registered under,
// the consumed byte slice, its decoded Value, and a reference to the parser
// node that produced it. Elements are immutable once constructed.
type Element struct {
	Path     string
	Consumed []byte
	Value    Value
	Node     NodeRef
}

// New constructs an Element. path must already be the full slash-separated
// path rooted at the parser's element_id (parent_path + "/" + element_id).
func New(path string, consumed []byte, value Value, node NodeRef) *Element {
	return &Element{Path: path, Consumed: consumed, Value: value, Node: node}
}

// JoinPath composes a child path the way the Parser Model contract requires:
// parent_path + "/" + element_id. A root element (empty parent) is just its
// own id.
func JoinPath(parent, elementID string) string {
	if parent == "" {
		return elementID
	}
	return parent + "/" + elementID
}
