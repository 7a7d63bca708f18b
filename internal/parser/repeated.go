// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "github.com/clusterwatch/sentryd/internal/matchtree"

// Repeated applies its child repeatedly at the same path, starting where
// the previous iteration left off, until the child fails, Max iterations
// (0 = unbounded) have been reached, or input is exhausted. Every path the
// child produces accumulates one list entry per iteration (§3): a key maps
// to a list precisely when its producing parser is repetition-capable.
// Fewer than Min successful iterations is itself a parse failure.
type Repeated struct {
	leaf
	Child Node
	Min   int
	Max   int
}

func NewRepeated(id string, child Node, min, max int) *Repeated {
	return &Repeated{leaf: leaf{id: id, typeName: "repeated"}, Child: child, Min: min, Max: max}
}

func (r *Repeated) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	path := matchtree.JoinPath(parentPath, r.id)
	tree := matchtree.NewTree()
	total := 0
	count := 0
	for {
		if r.Max > 0 && count >= r.Max {
			break
		}
		if offset+total >= len(data) {
			break
		}
		iterScope := matchtree.NewTree()
		iterScope.Merge("", scope)
		res, err := r.Child.Parse(data, offset+total, path, iterScope)
		if err != nil {
			break
		}
		if res.Consumed == 0 {
			// A zero-width match would loop forever; treat as end of
			// repetition rather than spin.
			break
		}
		tree.MergeAsList("", res.Tree)
		total += res.Consumed
		count++
	}
	if count < r.Min {
		return nil, ErrNoMatch
	}
	el := matchtree.New(path, data[offset:offset+total], matchtree.BytesValue(data[offset:offset+total]), r)
	tree.Set(path, el)
	return &Result{Consumed: total, Element: el, Tree: tree}, nil
}
