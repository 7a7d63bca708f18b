// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package atomizer

import (
	"io"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/logging"
)

// defaultGracePeriod is how long the Synchroniser waits for a silent
// source before proceeding without it for one round (§4.2). Configurable
// per Synchroniser via WithGracePeriod.
const defaultGracePeriod = 5 * time.Second

// ErrNoProgress is returned by Next when every live source is still
// within its grace period and none has produced an Atom yet; the caller
// is expected to retry.
var ErrNoProgress = io.ErrNoProgress

// Feed pairs one Atomizer with the source identity it's driving.
type Feed struct {
	Source   atom.SourceID
	Atomizer *Atomizer
}

type sourceResult struct {
	atom *atom.Atom
	err  error
}

// worker drives one Feed on its own goroutine, handing each decoded Atom
// to results and blocking there until the Synchroniser consumes it — an
// unbuffered channel behaves exactly like the spec's "buffers one atom per
// source" without a separate buffer slot to manage.
type worker struct {
	results chan sourceResult
}

func startWorker(f Feed) *worker {
	w := &worker{results: make(chan sourceResult)}
	go func() {
		for {
			a, err := f.Atomizer.Next()
			w.results <- sourceResult{atom: a, err: err}
			if err != nil {
				return
			}
		}
	}()
	return w
}

// Synchroniser merges multiple Feeds into one non-decreasing-timestamp
// Atom sequence (§4.2 multi-source mode). Atoms lacking a resolved
// timestamp sort first (timestamp 0), so unparseable data is delivered
// promptly instead of stalling the merge behind a well-formed source.
type Synchroniser struct {
	workers  map[atom.SourceID]*worker
	buffered map[atom.SourceID]*atom.Atom
	order    []atom.SourceID
	grace    time.Duration
}

// NewSynchroniser starts one worker goroutine per feed and returns a
// Synchroniser with the default grace period.
func NewSynchroniser(feeds []Feed) *Synchroniser {
	s := &Synchroniser{
		workers:  make(map[atom.SourceID]*worker, len(feeds)),
		buffered: make(map[atom.SourceID]*atom.Atom, len(feeds)),
		grace:    defaultGracePeriod,
	}
	for _, f := range feeds {
		s.workers[f.Source] = startWorker(f)
		s.order = append(s.order, f.Source)
	}
	return s
}

// WithGracePeriod overrides the default silence grace period.
func (s *Synchroniser) WithGracePeriod(d time.Duration) *Synchroniser {
	s.grace = d
	return s
}

// Next returns the next Atom in non-decreasing timestamp order across all
// live sources. Returns io.EOF once every source has closed; returns
// ErrNoProgress if every still-live source is within its grace period and
// none produced an Atom this round (callers should simply call Next
// again).
func (s *Synchroniser) Next() (*atom.Atom, error) {
	if len(s.workers) == 0 {
		return nil, io.EOF
	}

	deadline := time.Now().Add(s.grace)
	for _, src := range s.order {
		w, live := s.workers[src]
		if !live {
			continue
		}
		if _, have := s.buffered[src]; have {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			continue
		}
		select {
		case res := <-w.results:
			if res.err != nil {
				if res.err != io.EOF {
					logging.Debugf("atomizer: source %q dropped from synchroniser: %v", src, res.err)
				}
				delete(s.workers, src)
				continue
			}
			s.buffered[src] = res.atom
		case <-time.After(remaining):
			// Silent this round; stays live for the next call to Next.
		}
	}

	if len(s.buffered) == 0 {
		if len(s.workers) == 0 {
			return nil, io.EOF
		}
		return nil, ErrNoProgress
	}

	var winner atom.SourceID
	var winnerTS float64
	first := true
	for src, a := range s.buffered {
		ts, _ := a.Timestamp()
		if first || ts < winnerTS {
			winner, winnerTS = src, ts
			first = false
		}
	}
	result := s.buffered[winner]
	delete(s.buffered, winner)
	return result, nil
}
