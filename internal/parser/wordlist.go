// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"bytes"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

// FixedWordlist matches the first word in its declared set found as a
// prefix of the remaining input. Order is significant: rules must be
// declared most-specific (e.g. longest) first, same as First-match (§4.1).
type FixedWordlist struct {
	leaf
	Words [][]byte
}

func NewFixedWordlist(id string, words [][]byte) *FixedWordlist {
	return &FixedWordlist{leaf: leaf{id: id, typeName: "fixed-wordlist"}, Words: words}
}

func (w *FixedWordlist) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	for _, word := range w.Words {
		if offset+len(word) <= len(data) && bytes.Equal(data[offset:offset+len(word)], word) {
			path := matchtree.JoinPath(parentPath, w.id)
			el := matchtree.New(path, word, matchtree.BytesValue(word), w)
			return &Result{Consumed: len(word), Element: el, Tree: singleTree(path, el)}, nil
		}
	}
	return nil, ErrNoMatch
}
