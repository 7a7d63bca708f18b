// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package event

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/clusterwatch/sentryd/internal/logging"
)

// FanOut delivers one Event to every registered Sink in order, calls being
// serialised by the caller per §5 (the pipeline's single dispatch
// goroutine), so no internal locking is required here.
type FanOut struct {
	sinks []Sink
}

// NewFanOut builds a FanOut over sinks, copying the slice.
func NewFanOut(sinks []Sink) *FanOut {
	s := make([]Sink, len(sinks))
	copy(s, sinks)
	return &FanOut{sinks: s}
}

func (f *FanOut) ReceiveEvent(e Event) error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := sink.ReceiveEvent(e); err != nil {
			logging.Errorf("event: sink delivery failed for %s: %v", e.Source, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RateLimited wraps a Sink with a token-bucket limiter (events-per-second,
// burst) so a single misbehaving detector flooding anomalies cannot starve
// a shared, possibly remote sink. Events beyond the bucket are dropped, not
// queued: Event Emission is a suspension point (§5) and the dispatch
// goroutine must not block on it.
type RateLimited struct {
	next    Sink
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter allowing eventsPerSecond
// sustained and burst immediate events.
func NewRateLimited(next Sink, eventsPerSecond float64, burst int) *RateLimited {
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst)}
}

func (r *RateLimited) ReceiveEvent(e Event) error {
	if !r.limiter.Allow() {
		logging.Debugf("event: dropping %s, sink rate limit exceeded", e.Source)
		return nil
	}
	return r.next.ReceiveEvent(e)
}

// Wait blocks until the limiter has a token for e, honouring ctx
// cancellation, then delivers. Used by sinks where dropping an event is
// worse than a bounded delay (a persistence-backed or file sink, as
// opposed to a network sink under load shedding).
func (r *RateLimited) Wait(ctx context.Context, e Event) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("event: rate limiter wait for %s: %w", e.Source, err)
	}
	return r.next.ReceiveEvent(e)
}
