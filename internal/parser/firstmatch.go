// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "github.com/clusterwatch/sentryd/internal/matchtree"

// FirstMatch tries each child in declared order and commits to the first
// one that parses successfully (§4.1). Declaration order is significant:
// more specific branches must precede more general ones.
type FirstMatch struct {
	leaf
	Children []Node
}

func NewFirstMatch(id string, children []Node) *FirstMatch {
	return &FirstMatch{leaf: leaf{id: id, typeName: "first-match"}, Children: children}
}

func (f *FirstMatch) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	path := matchtree.JoinPath(parentPath, f.id)
	for _, child := range f.Children {
		res, err := child.Parse(data, offset, path, scope)
		if err != nil {
			continue
		}
		tree := matchtree.NewTree()
		tree.Merge("", res.Tree)
		el := matchtree.New(path, data[offset:offset+res.Consumed], matchtree.BytesValue(data[offset:offset+res.Consumed]), f)
		tree.Set(path, el)
		return &Result{Consumed: res.Consumed, Element: el, Tree: tree}, nil
	}
	return nil, ErrNoMatch
}
