// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"strconv"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

// SignPolicy controls whether a leading sign character is accepted.
type SignPolicy int

const (
	SignNone SignPolicy = iota
	SignOptional
	SignMandatory
)

// PadPolicy controls the leading-character padding a numeric field accepts
// before its significant digits.
type PadPolicy int

const (
	PadNone PadPolicy = iota
	PadZero
	PadBlank
)

// DecimalInteger matches a run of decimal digits with a configurable sign
// and padding policy.
type DecimalInteger struct {
	leaf
	Sign SignPolicy
	Pad  PadPolicy
}

func NewDecimalInteger(id string, sign SignPolicy, pad PadPolicy) *DecimalInteger {
	return &DecimalInteger{leaf: leaf{id: id, typeName: "decimal-integer"}, Sign: sign, Pad: pad}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (d *DecimalInteger) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	i := offset
	n := len(data)

	signLen := 0
	if i < n && (data[i] == '+' || data[i] == '-') {
		signLen = 1
	}
	switch d.Sign {
	case SignMandatory:
		if signLen == 0 {
			return nil, ErrNoMatch
		}
	case SignNone:
		signLen = 0
	case SignOptional:
		// signLen as detected
	}
	i += signLen

	padChar := byte(0)
	switch d.Pad {
	case PadZero:
		padChar = '0'
	case PadBlank:
		padChar = ' '
	}
	for padChar != 0 && i < n && data[i] == padChar {
		i++
	}

	digitsStart := i
	for i < n && isDigit(data[i]) {
		i++
	}
	if i == digitsStart {
		return nil, ErrNoMatch
	}

	consumed := i - offset
	raw := data[offset:i]
	signStr := ""
	if signLen == 1 {
		signStr = string(data[offset])
	}
	value, err := strconv.ParseInt(signStr+string(data[digitsStart:i]), 10, 64)
	if err != nil {
		return nil, ErrNoMatch
	}

	path := matchtree.JoinPath(parentPath, d.id)
	el := matchtree.New(path, raw, matchtree.IntValue(value), d)
	return &Result{Consumed: consumed, Element: el, Tree: singleTree(path, el)}, nil
}
