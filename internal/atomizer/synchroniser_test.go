// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package atomizer

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/parser"
)

func timestampRoot() parser.Node {
	return parser.NewSequence("line", []parser.Node{
		parser.NewDateTime("ts", []string{"2006-01-02T15:04:05"}, time.UTC, 0, 2024, 1),
		parser.NewFixed("sep", []byte(" ")),
		parser.NewVariableByte("msg", []byte("abcdefghijklmnopqrstuvwxyz"), 1),
	})
}

func TestSynchroniserReleasesInNonDecreasingTimestampOrder(t *testing.T) {
	a := New(atom.SourceID("a"), strings.NewReader(
		"2024-01-01T00:00:02 alpha\n2024-01-01T00:00:04 gamma\n"), timestampRoot(), "line/ts")
	b := New(atom.SourceID("b"), strings.NewReader(
		"2024-01-01T00:00:01 one\n2024-01-01T00:00:03 three\n"), timestampRoot(), "line/ts")

	sync := NewSynchroniser([]Feed{{Source: "a", Atomizer: a}, {Source: "b", Atomizer: b}}).
		WithGracePeriod(200 * time.Millisecond)

	var order []string
	for i := 0; i < 4; i++ {
		atm, err := sync.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if el := atm.Tree().GetElement("line/msg"); el != nil {
			order = append(order, el.Value.String())
		}
	}

	want := []string{"one", "alpha", "three", "gamma"}
	for i, w := range want {
		if order[i] != w {
			t.Errorf("order[%d] = %q, want %q (full order: %v)", i, order[i], w, order)
		}
	}

	if _, err := sync.Next(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}
