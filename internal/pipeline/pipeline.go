// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/atomizer"
	"github.com/clusterwatch/sentryd/internal/config"
	"github.com/clusterwatch/sentryd/internal/detector"
	"github.com/clusterwatch/sentryd/internal/dispatch"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/logging"
	"github.com/clusterwatch/sentryd/internal/parser"
	"github.com/clusterwatch/sentryd/internal/persistence"
	"github.com/clusterwatch/sentryd/internal/source"
	"github.com/clusterwatch/sentryd/internal/telemetry"
	"github.com/clusterwatch/sentryd/internal/timetrigger"
)

// Environment is the shared build-time context every detector/sink/source
// factory in this package draws on: where persisted state lives, what the
// global learn-mode override is, where to send built events by default,
// and where to record a build-time problem (an unknown sink_id, a
// detector the Time Trigger cannot schedule). A recorded problem does not
// stop the remaining Analysis entries from being built; Build then fails,
// reporting how many were recorded and the first of them.
type Environment struct {
	LearnMode   detector.LearnMode
	Persistence *persistence.Registry
	TimeTrigger *timetrigger.Scheduler
	Telemetry   telemetry.Recorder
	StartedAt   time.Time

	store       persistence.Store
	sinks       map[string]event.Sink
	defaultSink event.Sink
	errs        []error
}

func (env *Environment) onError(err error) {
	env.errs = append(env.errs, err)
	logging.Errorf("pipeline: %s", err)
}

// sinkFor resolves a's configured sink, falling back to the fan-out of
// every declared EventHandlers entry when Analysis didn't name one —
// matching a single-sink configuration (the common case) with zero extra
// config while still letting a multi-sink document route detectors
// individually.
func (env *Environment) sinkFor(a config.Analysis) event.Sink {
	if a.SinkID == "" {
		return env.defaultSink
	}
	s, ok := env.sinks[a.SinkID]
	if !ok {
		env.onError(fmt.Errorf("analysis %q: sink_id %q does not name a declared event handler", a.ID, a.SinkID))
		return env.defaultSink
	}
	return s
}

// Store returns the persistence.Store every detector constructor is built
// with, regardless of whether persistence was configured; it is never nil
// (NullStore when persistence is disabled), so call sites need no nil
// check.
func (env *Environment) Store() persistence.Store { return env.store }

// NullStore discards everything written to it and reports every key as
// absent, the backend used when persistence is not configured at all.
type NullStore struct{}

func (NullStore) LoadJSON(key string) ([]byte, bool, error) { return nil, false, nil }
func (NullStore) StoreJSON(key string, doc []byte) error    { return nil }

// OpenStore builds the persistence.Store cfg selects: FSStore (one JSON
// file per key under Path), SQLiteStore (one database file at Path), or
// NullStore when Backend is empty — the three backends
// internal/persistence offers, picked the same way config.InputConfig
// picks a Source constructor by a type string.
func OpenStore(cfg config.PersistenceConfig) (persistence.Store, error) {
	switch cfg.Backend {
	case "", "none":
		return NullStore{}, nil
	case "fs":
		if cfg.Path == "" {
			return nil, fmt.Errorf(`pipeline: persistence backend "fs" requires a Path`)
		}
		return persistence.NewFSStore(cfg.Path), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf(`pipeline: persistence backend "sqlite" requires a Path`)
		}
		return persistence.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("pipeline: unknown persistence backend %q", cfg.Backend)
	}
}

// Pipeline is the assembled, runnable engine: one Synchroniser feeding a
// Dispatch Fabric fan-out to every built detector, in the same
// registration order the document declared them, plus the Time Trigger
// and Persistence Registry driving their background obligations.
type Pipeline struct {
	sync        *atomizer.Synchroniser
	root        dispatch.Handler
	handlers    []dispatch.Handler
	detectors   []detector.Detector
	persistence *persistence.Registry
	timeTrigger *timetrigger.Scheduler
	sources     []source.Source
}

// Build assembles a Pipeline from doc: the Parser Model (already built by
// config.Validate/LoadAndValidate into parserRoot), the Input sources, the
// Analysis detectors, the EventHandlers sinks, the Time Trigger, and the
// Persistence Registry, wired together in one pass. store is where
// detectors' persisted state is read from and written to — build one with
// OpenStore, or pass NullStore{} to run with persistence disabled.
func Build(doc *config.Document, parserRoot parser.Node, store persistence.Store) (*Pipeline, error) {
	reg := persistence.NewRegistry()
	if store == nil {
		store = NullStore{}
	}

	scheduler, err := timetrigger.New()
	if err != nil {
		return nil, fmt.Errorf("pipeline: building time trigger: %w", err)
	}

	env := &Environment{
		LearnMode:   doc.LearnModeOverride(),
		Persistence: reg,
		TimeTrigger: scheduler,
		Telemetry:   telemetry.Nop,
		StartedAt:   time.Now(),
		store:       store,
		sinks:       make(map[string]event.Sink, len(doc.EventHandlers)),
	}

	allSinks := make([]event.Sink, 0, len(doc.EventHandlers))
	for _, h := range doc.EventHandlers {
		s, err := buildSink(h)
		if err != nil {
			return nil, fmt.Errorf("pipeline: event handler %q: %w", h.ID, err)
		}
		env.sinks[h.ID] = s
		allSinks = append(allSinks, s)
	}
	switch len(allSinks) {
	case 0:
		env.defaultSink = event.SinkFunc(func(event.Event) error { return nil })
	case 1:
		env.defaultSink = allSinks[0]
	default:
		env.defaultSink = event.NewFanOut(allSinks)
	}

	handlers, _, err := buildDetectors(doc.Analysis, env)
	if err != nil {
		return nil, err
	}
	if len(env.errs) > 0 {
		return nil, fmt.Errorf("pipeline: %d error(s) building analysis entries, first: %w", len(env.errs), env.errs[0])
	}
	root := dispatch.NewSubhandlerFilter(handlers, false)

	// statDetectors narrows handlers down to the ones LogStatistics
	// reporting (cmd/sentryd's periodic logger loop) actually applies to;
	// the two sidecar/transformer handler types have no stats to report.
	statDetectors := make([]detector.Detector, 0, len(handlers))
	for _, h := range handlers {
		if d, ok := h.(detector.Detector); ok {
			statDetectors = append(statDetectors, d)
		}
	}

	srcs, feeds, err := buildSources(doc.Input, parserRoot)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	sync := atomizer.NewSynchroniser(feeds)
	if doc.Input.GracePeriod != "" {
		grace, err := time.ParseDuration(doc.Input.GracePeriod)
		if err != nil {
			return nil, fmt.Errorf("pipeline: parsing Input.GracePeriod %q: %w", doc.Input.GracePeriod, err)
		}
		sync = sync.WithGracePeriod(grace)
	}

	return &Pipeline{
		sync:        sync,
		root:        root,
		handlers:    handlers,
		detectors:   statDetectors,
		persistence: reg,
		timeTrigger: scheduler,
		sources:     srcs,
	}, nil
}

func buildSources(in config.InputConfig, root parser.Node) ([]source.Source, []atomizer.Feed, error) {
	if len(in.Sources) == 0 {
		return nil, nil, fmt.Errorf("pipeline: Input.Sources is empty")
	}
	srcs := make([]source.Source, 0, len(in.Sources))
	feeds := make([]atomizer.Feed, 0, len(in.Sources))
	for _, spec := range in.Sources {
		id := atom.SourceID(spec.ID)
		var s source.Source
		var err error
		switch spec.Type {
		case "file":
			s, err = source.OpenFile(id, spec.Path)
		case "stdin":
			s = source.NewReaderSource(id, os.Stdin)
		case "nats":
			if spec.NATS == nil {
				err = fmt.Errorf("source %q: type nats requires an nats block", spec.ID)
				break
			}
			s, err = source.DialNATS(id, source.NATSConfig{
				Address:       spec.NATS.Address,
				Subject:       spec.NATS.Subject,
				Queue:         spec.NATS.Queue,
				Username:      spec.NATS.Username,
				Password:      spec.NATS.Password,
				CredsFilePath: spec.NATS.CredsFilePath,
			})
		default:
			err = fmt.Errorf("source %q: unknown type %q", spec.ID, spec.Type)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: building source %q: %w", spec.ID, err)
		}
		srcs = append(srcs, s)
		feeds = append(feeds, atomizer.Feed{
			Source:   id,
			Atomizer: atomizer.New(id, s, root, in.TimestampPath),
		})
	}
	return srcs, feeds, nil
}

// Run drains the Synchroniser, dispatching every atom to the detector
// fan-out, until the underlying sources are exhausted or return a
// non-EOF error. One call to Run processes the whole stream; the caller
// (cmd/sentryd) is responsible for stopping it early via context
// cancellation propagated down into the sources themselves (closing them
// unblocks the blocking Read a Source/Atomizer pair is waiting on).
func (p *Pipeline) Run() error {
	for {
		a, err := p.sync.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if err == atomizer.ErrNoProgress {
				continue
			}
			return err
		}
		p.root.ReceiveAtom(a)
	}
}

// Shutdown stops the Time Trigger and persists every registered
// detector's state one last time (§5 Cancellation: "finish in-flight
// work, persist, then exit").
func (p *Pipeline) Shutdown() error {
	if err := p.timeTrigger.Shutdown(); err != nil {
		logging.Warnf("pipeline: stopping time trigger: %s", err)
	}
	for _, s := range p.sources {
		if err := s.Close(); err != nil {
			logging.Warnf("pipeline: closing source %s: %s", s.ID(), err)
		}
	}
	return p.persistence.PersistAll()
}

// Detectors exposes the built detectors in registration order, primarily
// for LogStatistics reporting (cmd/sentryd's periodic logger loop).
func (p *Pipeline) Detectors() []detector.Detector { return p.detectors }
