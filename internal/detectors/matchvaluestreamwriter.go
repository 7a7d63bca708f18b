// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"bufio"
	"io"

	"github.com/clusterwatch/sentryd/internal/atom"
)

// MatchValueStreamWriter is not an anomaly detector; it is a sidecar
// dispatch handler that copies decoded values at configured paths to an
// external byte sink, one line per atom, fields joined by Separator
// (§4.4). It always returns true: observing a value is never a failure to
// handle.
type MatchValueStreamWriter struct {
	paths     []string
	separator string
	w         *bufio.Writer
}

// NewMatchValueStreamWriter builds a MatchValueStreamWriter over paths,
// writing to w.
func NewMatchValueStreamWriter(paths []string, separator string, w io.Writer) *MatchValueStreamWriter {
	if separator == "" {
		separator = "\t"
	}
	p := make([]string, len(paths))
	copy(p, paths)
	return &MatchValueStreamWriter{paths: p, separator: separator, w: bufio.NewWriter(w)}
}

func (s *MatchValueStreamWriter) ReceiveAtom(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return true
	}
	for i, p := range s.paths {
		if i > 0 {
			s.w.WriteString(s.separator)
		}
		if el := tree.GetElement(p); el != nil {
			s.w.WriteString(el.Value.String())
		}
	}
	s.w.WriteByte('\n')
	s.w.Flush()
	return true
}
