// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/matchtree"
)

// MatchFilter restricts delivery to a wrapped Handler to Atoms whose Match
// Tree contains Path and, if WantValue is set, whose decoded value at Path
// stringifies to Value (§4.3). An unparsed Atom (nil Tree) never matches.
type MatchFilter struct {
	Path      string
	Value     string
	WantValue bool
	Next      Handler
}

// NewMatchFilter restricts Next to atoms containing Path, regardless of
// its decoded value.
func NewMatchFilter(path string, next Handler) *MatchFilter {
	return &MatchFilter{Path: path, Next: next}
}

// NewMatchValueFilter restricts Next to atoms where Path's decoded value
// stringifies to value.
func NewMatchValueFilter(path, value string, next Handler) *MatchFilter {
	return &MatchFilter{Path: path, Value: value, WantValue: true, Next: next}
}

func (f *MatchFilter) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	el := tree.GetElement(f.Path)
	if el == nil {
		if list := tree.GetList(f.Path); list != nil {
			return f.matchesList(a, list)
		}
		return false
	}
	if f.WantValue && el.Value.String() != f.Value {
		return false
	}
	return f.Next.ReceiveAtom(a)
}

func (f *MatchFilter) matchesList(a *atom.Atom, list []*matchtree.Element) bool {
	if !f.WantValue {
		return f.Next.ReceiveAtom(a)
	}
	for _, el := range list {
		if el.Value.String() == f.Value {
			return f.Next.ReceiveAtom(a)
		}
	}
	return false
}
