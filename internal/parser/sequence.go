// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "github.com/clusterwatch/sentryd/internal/matchtree"

// Sequence matches its children in order, each starting where the previous
// left off. On any child's failure the whole sequence fails with no effect
// on the Match Tree: the (locally built) fragment is simply never merged
// into anything the caller can observe (§3, §4.1).
type Sequence struct {
	leaf
	Children []Node
}

func NewSequence(id string, children []Node) *Sequence {
	return &Sequence{leaf: leaf{id: id, typeName: "sequence"}, Children: children}
}

func (s *Sequence) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	path := matchtree.JoinPath(parentPath, s.id)
	tree := matchtree.NewTree()
	total := 0
	for _, child := range s.Children {
		// Each child sees everything matched by its elder siblings in this
		// Sequence so far, layered on top of the enclosing scope, so an
		// ElementValueBranch later in the sequence can branch on a value an
		// earlier sibling matched.
		childScope := matchtree.NewTree()
		childScope.Merge("", scope)
		childScope.Merge("", tree)
		res, err := child.Parse(data, offset+total, path, childScope)
		if err != nil {
			return nil, err
		}
		tree.Merge("", res.Tree)
		total += res.Consumed
	}
	el := matchtree.New(path, data[offset:offset+total], matchtree.BytesValue(data[offset:offset+total]), s)
	tree.Set(path, el)
	return &Result{Consumed: total, Element: el, Tree: tree}, nil
}
