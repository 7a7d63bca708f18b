// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package atomizer implements the Atomizer (§4.2): it turns one byte
// stream into a lazy sequence of Log Atoms by framing newline-delimited
// lines and running the Parser Model root against each.
package atomizer

import (
	"bufio"
	"io"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/logging"
	"github.com/clusterwatch/sentryd/internal/matchtree"
	"github.com/clusterwatch/sentryd/internal/parser"
)

const defaultBufferSize = 64 * 1024

// Atomizer frames one byte stream into Log Atoms. Not safe for concurrent
// use by multiple goroutines against the same underlying reader; one
// Atomizer per source (§4.2 multi-source mode pairs one Atomizer with one
// Synchroniser input queue).
type Atomizer struct {
	source        atom.SourceID
	reader        *bufio.Reader
	root          parser.Node
	timestampPath string
}

// New wraps r as a line-framed Atom source. root is the Parser Model built
// for this pipeline; timestampPath (may be "") names the Match Tree path
// whose decoded timestamp populates each successfully parsed Atom's
// Timestamp.
func New(source atom.SourceID, r io.Reader, root parser.Node, timestampPath string) *Atomizer {
	return &Atomizer{
		source:        source,
		reader:        bufio.NewReaderSize(r, defaultBufferSize),
		root:          root,
		timestampPath: timestampPath,
	}
}

// Next reads and parses one line, returning (nil, io.EOF) once the
// underlying reader is exhausted. A trailing line with no final newline is
// still delivered (io.EOF from ReadBytes surfaces data alongside the
// error; Next treats that data as one last complete line before
// propagating EOF on the following call).
func (a *Atomizer) Next() (*atom.Atom, error) {
	line, err := a.reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(line) == 0 && err == io.EOF {
		return nil, io.EOF
	}
	line = trimNewline(line)
	return a.frame(line), nil
}

func (a *Atomizer) frame(line []byte) *atom.Atom {
	res, parseErr := parser.ParseRoot(a.root, line)
	var tree *matchtree.Tree
	if parseErr != nil {
		logging.Debugf("atomizer: source %q: parse failure: %v", a.source, parseErr)
	} else {
		tree = res.Tree
	}
	return atom.New(line, tree, a.source, a.timestampPath)
}

func trimNewline(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n]
}
