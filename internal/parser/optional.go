// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "github.com/clusterwatch/sentryd/internal/matchtree"

// Optional tries its child once; a failed child is not an error, it simply
// consumes nothing and contributes no entries to the Match Tree.
type Optional struct {
	leaf
	Child Node
}

func NewOptional(id string, child Node) *Optional {
	return &Optional{leaf: leaf{id: id, typeName: "optional"}, Child: child}
}

func (o *Optional) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	path := matchtree.JoinPath(parentPath, o.id)
	res, err := o.Child.Parse(data, offset, path, scope)
	if err != nil {
		el := matchtree.New(path, nil, matchtree.AbsentValue(), o)
		return &Result{Consumed: 0, Element: el, Tree: matchtree.NewTree()}, nil
	}
	tree := matchtree.NewTree()
	tree.Merge("", res.Tree)
	return &Result{Consumed: res.Consumed, Element: res.Element, Tree: tree}, nil
}
