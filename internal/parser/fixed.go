// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"bytes"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

// Fixed matches an exact byte literal.
type Fixed struct {
	leaf
	Literal []byte
}

func NewFixed(id string, literal []byte) *Fixed {
	return &Fixed{leaf: leaf{id: id, typeName: "fixed"}, Literal: literal}
}

func (f *Fixed) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	if offset+len(f.Literal) > len(data) || !bytes.Equal(data[offset:offset+len(f.Literal)], f.Literal) {
		return nil, ErrNoMatch
	}
	path := matchtree.JoinPath(parentPath, f.id)
	el := matchtree.New(path, f.Literal, matchtree.BytesValue(f.Literal), f)
	return &Result{Consumed: len(f.Literal), Element: el, Tree: singleTree(path, el)}, nil
}
