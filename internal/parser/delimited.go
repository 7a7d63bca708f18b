// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "github.com/clusterwatch/sentryd/internal/matchtree"

// Delimited consumes bytes up to (and optionally including) the next
// occurrence of Delimiter, honoring an optional Escape byte: an escape
// immediately followed by the delimiter or another escape is treated as a
// literal and does not terminate the match. Reaching the end of input
// without an unescaped delimiter is itself a successful match consuming
// every remaining byte, mirroring a line's last field having no trailing
// separator.
type Delimited struct {
	leaf
	Delimiter        byte
	Escape           byte // 0 disables escaping
	ConsumeDelimiter bool
}

func NewDelimited(id string, delimiter, escape byte, consumeDelimiter bool) *Delimited {
	return &Delimited{leaf: leaf{id: id, typeName: "delimited"}, Delimiter: delimiter, Escape: escape, ConsumeDelimiter: consumeDelimiter}
}

func (d *Delimited) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	n := len(data)
	if offset >= n {
		return nil, ErrNoMatch
	}
	i := offset
	for i < n {
		if d.Escape != 0 && data[i] == d.Escape && i+1 < n {
			i += 2
			continue
		}
		if data[i] == d.Delimiter {
			break
		}
		i++
	}
	consumed := i - offset
	delimiterFound := i < n
	if delimiterFound && d.ConsumeDelimiter {
		consumed++
	}

	path := matchtree.JoinPath(parentPath, d.id)
	valueEnd := offset + consumed
	if delimiterFound && d.ConsumeDelimiter {
		valueEnd--
	}
	raw := data[offset:valueEnd]
	el := matchtree.New(path, data[offset:offset+consumed], matchtree.BytesValue(unescape(raw, d.Escape)), d)
	return &Result{Consumed: consumed, Element: el, Tree: singleTree(path, el)}, nil
}

func unescape(raw []byte, escape byte) []byte {
	if escape == 0 {
		return raw
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == escape && i+1 < len(raw) {
			i++
		}
		out = append(out, raw[i])
	}
	return out
}
