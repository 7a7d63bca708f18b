// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package matchtree

// Tree is the flat path-indexed view of one parse result (the "match
// dictionary" of §3). Invariant: every key is unique; a key maps to a slice
// only when the parser that produced it is repetition-capable (Repeated
// nodes). Traversal order is insertion order, which is the left-to-right
// order the parser explored the tree (§3 invariant).
type Tree struct {
	order  []string
	single map[string]*Element
	multi  map[string][]*Element
}

// NewTree returns an empty match tree.
func NewTree() *Tree {
	return &Tree{
		single: make(map[string]*Element),
		multi:  make(map[string][]*Element),
	}
}

// Set registers a single-valued element under path. Calling Set twice for
// the same path is a programmer error (paths are a function of the Parser
// Model alone) but the second call silently overwrites to keep parse()
// total rather than panicking mid-dispatch.
func (t *Tree) Set(path string, el *Element) {
	if _, seen := t.single[path]; !seen {
		if _, seenMulti := t.multi[path]; !seenMulti {
			t.order = append(t.order, path)
		}
	}
	t.single[path] = el
}

// Append adds el to the list of values recorded under path. Used by
// repetition-capable parsers (Repeated) where a key maps to a list.
func (t *Tree) Append(path string, el *Element) {
	if _, seen := t.multi[path]; !seen {
		if _, seenSingle := t.single[path]; !seenSingle {
			t.order = append(t.order, path)
		}
	}
	t.multi[path] = append(t.multi[path], el)
}

// Get returns the value registered at path: either a *Element, a []*Element,
// or ok=false if nothing was registered.
func (t *Tree) Get(path string) (value any, ok bool) {
	if el, found := t.single[path]; found {
		return el, true
	}
	if els, found := t.multi[path]; found {
		return els, true
	}
	return nil, false
}

// GetElement returns the single Element at path, or nil if path is absent or
// is a list-valued path.
func (t *Tree) GetElement(path string) *Element {
	return t.single[path]
}

// GetList returns the list of Elements at path, or nil if path is absent or
// is a single-valued path.
func (t *Tree) GetList(path string) []*Element {
	return t.multi[path]
}

// Has reports whether path was registered, regardless of arity.
func (t *Tree) Has(path string) bool {
	if _, ok := t.single[path]; ok {
		return true
	}
	_, ok := t.multi[path]
	return ok
}

// Paths returns every registered path in insertion (left-to-right parse)
// order.
func (t *Tree) Paths() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of distinct paths registered.
func (t *Tree) Len() int { return len(t.order) }

// MergeAsList folds one repetition's child tree into t by Append-ing every
// entry (whether the child recorded it as single- or list-valued) under its
// own path. Repeated uses this once per iteration so that every path inside
// the repeated sub-tree accumulates one list entry per repetition, per §3's
// "a key maps to a list only when the parser that produced it is
// repetition-capable" invariant.
func (t *Tree) MergeAsList(prefix string, child *Tree) {
	if child == nil {
		return
	}
	for _, p := range child.order {
		full := p
		if prefix != "" {
			full = prefix + "/" + p
		}
		if el, ok := child.single[p]; ok {
			t.Append(full, el)
			continue
		}
		if els, ok := child.multi[p]; ok {
			for _, el := range els {
				t.Append(full, el)
			}
		}
	}
}

// Merge wires a child tree's entries into t, rebasing each child path under
// prefix (parent_path + "/" + element_id), preserving the child's relative
// insertion order appended after any entries already in t. Composite parser
// nodes (Sequence, Repeated, Optional, ...) use this to assemble their
// children's sub-trees into their own.
func (t *Tree) Merge(prefix string, child *Tree) {
	if child == nil {
		return
	}
	for _, p := range child.order {
		full := p
		if prefix != "" {
			full = prefix + "/" + p
		}
		if el, ok := child.single[p]; ok {
			t.Set(full, el)
			continue
		}
		if els, ok := child.multi[p]; ok {
			for _, el := range els {
				t.Append(full, el)
			}
		}
	}
}
