// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package detectors

import (
	"sync"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/matchtree"
)

type stubNode struct{ id string }

func (s stubNode) ElementID() string { return s.id }
func (s stubNode) TypeName() string  { return "fixed" }

// treeBuilder accumulates path/value pairs into a Tree for test atoms.
type treeBuilder struct {
	tr *matchtree.Tree
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{tr: matchtree.NewTree()}
}

func (b *treeBuilder) with(path string, v matchtree.Value) *treeBuilder {
	b.tr.Set(path, matchtree.New(path, nil, v, stubNode{id: path}))
	return b
}

func (b *treeBuilder) atom(raw string) *atom.Atom {
	return atom.New([]byte(raw), b.tr, "test", "")
}

func bytesAtom(raw string, path string, value string) *atom.Atom {
	return newTreeBuilder().with(path, matchtree.BytesValue([]byte(value))).atom(raw)
}

func unparsedAtom(raw string) *atom.Atom {
	return atom.New([]byte(raw), nil, "test", "")
}

// multiBytesAtom builds a test atom with one bytes-valued element per
// path in pairs, applied in the given order.
func multiBytesAtom(raw string, paths []string, values []string) *atom.Atom {
	b := newTreeBuilder()
	for i, p := range paths {
		b.with(p, matchtree.BytesValue([]byte(values[i])))
	}
	return b.atom(raw)
}

func intAtom(raw, path string, v int64) *atom.Atom {
	return newTreeBuilder().with(path, matchtree.IntValue(v)).atom(raw)
}

func floatAtom(raw, path string, v float64) *atom.Atom {
	return newTreeBuilder().with(path, matchtree.FloatValue(v)).atom(raw)
}

// timestampedEventAtom builds a test atom with an "event" bytes-valued
// element and a resolved timestamp ts, for correlation/ordering tests.
func timestampedEventAtom(raw, eventValue string, ts float64) *atom.Atom {
	tr := matchtree.NewTree()
	tr.Set("event", matchtree.New("event", nil, matchtree.BytesValue([]byte(eventValue)), stubNode{id: "event"}))
	tr.Set("ts", matchtree.New("ts", nil, matchtree.TimestampValue(ts), stubNode{id: "ts"}))
	return atom.New([]byte(raw), tr, "test", "ts")
}

// collectingSink records every Event it receives, guarded by a mutex since
// some detectors' tests exercise DoTimer concurrently with ReceiveAtom.
type collectingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *collectingSink) ReceiveEvent(e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeStore is an in-memory persistence.Store for tests.
type fakeStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]byte)}
}

func (s *fakeStore) LoadJSON(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	return doc, ok, nil
}

func (s *fakeStore) StoreJSON(key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = doc
	return nil
}

var noLearnDeadline = time.Time{}
