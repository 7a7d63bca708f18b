// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package parser implements the Parser Model (spec §4.1): a tree of parser
// nodes that consumes bytes and produces a match tree. Built once at config
// load and immutable thereafter (Data Model §3 Lifecycle), except for the
// bounded, mutex-guarded running state a handful of variants keep (DateTime's
// last-accepted timestamp).
package parser

import (
	"errors"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

// ErrNoMatch is the sentinel "miss" failure every node returns when its
// input does not satisfy its grammar. Composite nodes propagate it (or a
// more specific error) to their own caller without retaining partial side
// effects on the match tree (§4.1 Sequence semantics).
var ErrNoMatch = errors.New("parser: no match")

// Result is what a successful Parse call hands back: how many bytes were
// consumed, the node's own Element (registered at parentPath+"/"+id), and
// the match tree fragment rooted at this node (itself plus every
// descendant, keyed by absolute path). Composite parsers union child
// Results' Tree into their own before returning.
type Result struct {
	Consumed int
	Element  *matchtree.Element
	Tree     *matchtree.Tree
}

// Node is the contract every Parser Node variant implements (§4.1).
// parentPath is the already-resolved path of the enclosing node ("" at the
// Parser Model root); the node computes its own path as
// matchtree.JoinPath(parentPath, node.ElementID()). scope carries every
// element matched so far by earlier siblings within the innermost enclosing
// Sequence (empty at the Parser Model root), so a node such as
// ElementValueBranch can branch on a value matched earlier in the same
// Sequence without the caller threading it through out-of-band state.
type Node interface {
	matchtree.NodeRef
	Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error)
}

// leaf is an embeddable helper for the terminal variants (Fixed, VariableByte,
// DecimalInteger, Float, DateTime, FixedWordlist): it owns no children and
// returns a Tree containing only its own entry.
type leaf struct {
	id       string
	typeName string
}

func (l leaf) ElementID() string { return l.id }
func (l leaf) TypeName() string  { return l.typeName }

func singleTree(path string, el *matchtree.Element) *matchtree.Tree {
	t := matchtree.NewTree()
	t.Set(path, el)
	return t
}

// ParseRoot runs root against data starting at offset 0 with an empty
// enclosing scope, as the Atomizer does for every framed line (§4.2).
func ParseRoot(root Node, data []byte) (*Result, error) {
	return root.Parse(data, 0, "", matchtree.NewTree())
}
