// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package persistence implements the Persistence contract (§4.6): a
// key/value document store addressed by <DetectorClass>/<persistence-id>,
// atomic at document granularity, plus the process-wide registry of
// persistable components.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Store is the key/value document store every persistable detector uses.
// Keys are "<DetectorClass>/<persistence-id>" (§4.6). A missing key
// returns ok=false, not an error: a fresh detector with no prior state is
// not a failure.
type Store interface {
	LoadJSON(key string) (doc []byte, ok bool, err error)
	StoreJSON(key string, doc []byte) error
}

// Persistable is anything a Registry can drive through a do_persist
// sweep (§4.6). Implemented by detector.Persistable and by any
// other component with state to flush.
type Persistable interface {
	PersistenceKey() string
	DoPersist() error
}

// Registry is the process-wide list of persistable components that
// PersistAll sweeps (§4.6), mirroring add_persistable_component's role in
// the detector lifecycle. Nothing calls PersistAll on a timer; the only
// sweep is the one Pipeline.Shutdown runs.
type Registry struct {
	mu         sync.Mutex
	components []Persistable
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers p for the next PersistAll sweep. Safe to call while a
// sweep is in progress; the new component is picked up on the following
// sweep.
func (r *Registry) Add(p Persistable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, p)
}

// PersistAll calls DoPersist on every registered component, continuing
// past individual failures and returning a combined error describing every
// component that failed. Cooperative shutdown (§5) calls this once as its
// final step before exiting.
func (r *Registry) PersistAll() error {
	r.mu.Lock()
	components := make([]Persistable, len(r.components))
	copy(components, r.components)
	r.mu.Unlock()

	var errs []error
	for _, c := range components {
		if err := c.DoPersist(); err != nil {
			errs = append(errs, fmt.Errorf("persistence: %s: %w", c.PersistenceKey(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("persistence: %d component(s) failed to persist: %w", len(errs), errors.Join(errs...))
}

// SaveDoc marshals v as JSON and stores it under key via s.
func SaveDoc(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persistence: marshaling %s: %w", key, err)
	}
	return s.StoreJSON(key, b)
}

// LoadDoc loads key from s and unmarshals it into v. ok is false, err is
// nil when the key does not exist: callers should treat that as "no prior
// state," not a fatal condition. Unknown fields in the stored document are
// silently ignored (schema evolution, §6): json.Unmarshal already does
// this by default.
func LoadDoc(s Store, key string, v any) (ok bool, err error) {
	doc, found, err := s.LoadJSON(key)
	if err != nil {
		return false, fmt.Errorf("persistence: loading %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return false, fmt.Errorf("persistence: unmarshaling %s: %w", key, err)
	}
	return true, nil
}
