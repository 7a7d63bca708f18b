// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"fmt"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

// ElementValueBranch selects its next child by looking up the string form
// of a previously matched element (ReferencePath, resolved against scope —
// every element matched earlier in the enclosing Sequence) in Branches,
// falling back to Default when the value is absent or unmapped.
type ElementValueBranch struct {
	leaf
	ReferencePath string
	Branches      map[string]Node
	Default       Node
}

func NewElementValueBranch(id, referencePath string, branches map[string]Node, def Node) *ElementValueBranch {
	return &ElementValueBranch{
		leaf:          leaf{id: id, typeName: "element-value-branch"},
		ReferencePath: referencePath,
		Branches:      branches,
		Default:       def,
	}
}

func (b *ElementValueBranch) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	path := matchtree.JoinPath(parentPath, b.id)

	child := b.Default
	if scope != nil {
		if ref := scope.GetElement(b.ReferencePath); ref != nil {
			if branch, ok := b.Branches[ref.Value.String()]; ok {
				child = branch
			}
		}
	}
	if child == nil {
		return nil, fmt.Errorf("parser: %q has no branch for %q and no default", b.id, b.ReferencePath)
	}

	res, err := child.Parse(data, offset, path, scope)
	if err != nil {
		return nil, err
	}
	tree := matchtree.NewTree()
	tree.Merge("", res.Tree)
	el := matchtree.New(path, data[offset:offset+res.Consumed], matchtree.BytesValue(data[offset:offset+res.Consumed]), b)
	tree.Set(path, el)
	return &Result{Consumed: res.Consumed, Element: el, Tree: tree}, nil
}
