// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "github.com/clusterwatch/sentryd/internal/matchtree"

// VariableByte greedily consumes bytes drawn from an accepted alphabet.
type VariableByte struct {
	leaf
	alphabet [256]bool
	MinBytes int
}

// NewVariableByte builds a VariableByte node accepting any byte in alphabet.
// minBytes (default 1 when <= 0) is the minimum number of bytes that must be
// consumed for the match to succeed.
func NewVariableByte(id string, alphabet []byte, minBytes int) *VariableByte {
	v := &VariableByte{leaf: leaf{id: id, typeName: "variable-byte"}, MinBytes: minBytes}
	if v.MinBytes <= 0 {
		v.MinBytes = 1
	}
	for _, b := range alphabet {
		v.alphabet[b] = true
	}
	return v
}

func (v *VariableByte) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	i := offset
	for i < len(data) && v.alphabet[data[i]] {
		i++
	}
	consumed := i - offset
	if consumed < v.MinBytes {
		return nil, ErrNoMatch
	}
	path := matchtree.JoinPath(parentPath, v.id)
	raw := data[offset:i]
	el := matchtree.New(path, raw, matchtree.BytesValue(raw), v)
	return &Result{Consumed: consumed, Element: el, Tree: singleTree(path, el)}, nil
}
