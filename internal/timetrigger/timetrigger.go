// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timetrigger drives the Time Trigger component (§4.5): it calls
// every registered detector.TimeTriggered's DoTimer on the cadence DoTimer
// itself requests, the same way the teacher's internal/taskManager drives
// periodic work with gocron, but with a per-detector interval that the
// detector recomputes after every run instead of a fixed schedule.
package timetrigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/clusterwatch/sentryd/internal/detector"
)

// Scheduler wraps a gocron.Scheduler, one job per registered TimeTriggered
// detector (§4.5). Realtime-class detectors are all DoTimer exists for in
// this engine; Analysis-class scheduling (driven by atom timestamps
// rather than wall clock) belongs to the Atomizer/dispatch path, not this
// package.
type Scheduler struct {
	sched gocron.Scheduler
}

// New builds a Scheduler. Register every detector before calling Start.
func New() (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("timetrigger: creating scheduler: %w", err)
	}
	return &Scheduler{sched: sched}, nil
}

// tick holds the delay DoTimer most recently asked to wait before its next
// invocation. gocron.DynamicDuration reads it back to schedule the next
// run, so a detector that asks for a longer interval after a quiet period
// gets one.
type tick struct {
	mu    sync.Mutex
	delay time.Duration
}

func (t *tick) set(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d <= 0 {
		d = time.Second
	}
	t.delay = d
}

func (t *tick) get() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// Register schedules td to run on its own self-reported cadence. DoTimer
// is invoked once immediately to seed the first interval — a freshly
// registered detector gets a real tick rather than sitting idle for an
// arbitrary startup delay — and again every time the job subsequently
// fires. WithSingletonMode(LimitModeReschedule) is what coalesces missed
// ticks (§4.5): if a run is still in flight (or was skipped) when the next
// one would start, gocron reschedules rather than queuing a catch-up
// burst, so a detector never receives more than one overdue invocation.
func (s *Scheduler) Register(name string, td detector.TimeTriggered) error {
	t := &tick{}
	t.set(td.DoTimer(time.Now()))

	_, err := s.sched.NewJob(
		gocron.DynamicDuration(func() time.Duration {
			return t.get()
		}),
		gocron.NewTask(func() {
			t.set(td.DoTimer(time.Now()))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("timetrigger:"+name),
	)
	if err != nil {
		return fmt.Errorf("timetrigger: registering %s: %w", name, err)
	}
	return nil
}

// Start begins firing every registered job.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown stops the scheduler and waits for in-flight jobs to finish.
// Cooperative shutdown (§5) calls this before the final
// persistence.Registry.PersistAll sweep.
func (s *Scheduler) Shutdown() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("timetrigger: shutdown: %w", err)
	}
	return nil
}
