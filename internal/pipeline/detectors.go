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

	"github.com/clusterwatch/sentryd/internal/config"
	"github.com/clusterwatch/sentryd/internal/detector"
	"github.com/clusterwatch/sentryd/internal/detector/rule"
	"github.com/clusterwatch/sentryd/internal/detectors"
	"github.com/clusterwatch/sentryd/internal/dispatch"
	"github.com/clusterwatch/sentryd/internal/event"
	"github.com/clusterwatch/sentryd/internal/logging"
	"github.com/clusterwatch/sentryd/internal/telemetry"
)

// learnFields is the subset of Analysis.Args every learning detector
// shares: whether it declares learn at all, and its two optional stop
// conditions (§4.4).
type learnFields struct {
	Learn                 bool   `yaml:"learn"`
	StopLearningTime      string `yaml:"stop_learning_time,omitempty"`
	StopLearningNoAnomaly string `yaml:"stop_learning_no_anomaly,omitempty"`
}

func (f learnFields) stopTime() (time.Time, error) {
	if f.StopLearningTime == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, f.StopLearningTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("pipeline: parsing stop_learning_time %q: %w", f.StopLearningTime, err)
	}
	return t, nil
}

func (f learnFields) slidingWindow() (time.Duration, error) {
	if f.StopLearningNoAnomaly == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.StopLearningNoAnomaly)
	if err != nil {
		return 0, fmt.Errorf("pipeline: parsing stop_learning_no_anomaly %q: %w", f.StopLearningNoAnomaly, err)
	}
	return d, nil
}

type newMatchPathArgs struct {
	PersistenceID string `yaml:"persistence_id,omitempty"`
	learnFields   `yaml:",inline"`
}

type newMatchPathValueComboArgs struct {
	newMatchPathArgs `yaml:",inline"`
	Paths            []string `yaml:"paths"`
}

type enhancedNewValueComboArgs struct {
	newMatchPathValueComboArgs `yaml:",inline"`
	MaxExamplesPerCombo        int `yaml:"max_examples_per_combo,omitempty"`
}

type valueRangeArgs struct {
	PersistenceID  string   `yaml:"persistence_id,omitempty"`
	IDPathList     []string `yaml:"id_path_list"`
	TargetPathList []string `yaml:"target_path_list"`
	IgnoreList     []string `yaml:"ignore_list,omitempty"`
	ConstraintList []string `yaml:"constraint_list,omitempty"`
	learnFields    `yaml:",inline"`
}

type histogramArgs struct {
	TargetPathList []string `yaml:"target_path_list"`
	PathDependent  bool     `yaml:"path_dependent,omitempty"`
	ReportInterval string   `yaml:"report_interval,omitempty"`
}

type matchValueAverageChangeArgs struct {
	PersistenceID  string   `yaml:"persistence_id,omitempty"`
	TargetPathList []string `yaml:"target_path_list"`
	Sigma          float64  `yaml:"sigma,omitempty"`
	MinSamples     int64    `yaml:"min_samples,omitempty"`
	learnFields    `yaml:",inline"`
}

type correlationPairArgs struct {
	Name             string  `yaml:"name"`
	A                any     `yaml:"a"`
	B                any     `yaml:"b"`
	Window           string  `yaml:"window"`
	HysteresisFactor float64 `yaml:"hysteresis_factor,omitempty"`
}

type timeCorrelationViolationArgs struct {
	Pairs []correlationPairArgs `yaml:"pairs"`
}

type timestampsUnsortedArgs struct {
	ExitOnError bool `yaml:"exit_on_error,omitempty"`
}

type allowlistViolationArgs struct {
	Rules []any `yaml:"rules"`
}

type parserCountArgs struct {
	TargetPathList []string          `yaml:"target_path_list,omitempty"`
	TargetLabels   map[string]string `yaml:"target_labels,omitempty"`
	ReportInterval string            `yaml:"report_interval,omitempty"`
	SplitReports   bool              `yaml:"split_reports,omitempty"`
}

type matchValueStreamWriterArgs struct {
	Paths      []string `yaml:"paths"`
	Separator  string   `yaml:"separator,omitempty"`
	OutputPath string   `yaml:"output_path,omitempty"`
}

type monotonicTimestampAdjustArgs struct {
	NextID string `yaml:"next_id"`
}

type starvationArgs struct {
	Filter     any    `yaml:"filter,omitempty"`
	MaxSilence string `yaml:"max_silence"`
}

// deferredAnalysis is an Analysis entry whose handler cannot be built
// until another Analysis entry's handler already exists (currently just
// monotonic-timestamp-adjust, whose "next" callback wraps an
// already-built handler's ReceiveAtom). buildDetectors resolves every
// other entry first, then these, mirroring BuildParserTree's bottom-up
// construction for the same reason: a flat, declaration-order-independent
// reference list.
type deferredAnalysis struct {
	entry config.Analysis
	build func(byID map[string]dispatch.Handler) (dispatch.Handler, error)
}

// buildDetectors instantiates every Analysis entry in doc against env,
// returning the built handlers in declaration order (§8 "14 registered
// detectors invoked in registration order") together with an id-keyed
// lookup used by deferred entries and by the sink-routing pass. Not every
// Analysis entry is a detector.Detector — MatchValueStreamWriter and
// MonotonicTimestampAdjust are sidecar/transformer dispatch.Handlers with
// no Name/LogStatistics/persistence of their own — so the fan-out this
// feeds is built over the narrower dispatch.Handler interface, with
// wireCrossCutting applying the detector-only obligations (telemetry,
// persistence, time trigger) only where the concrete type actually
// supports them.
func buildDetectors(analyses []config.Analysis, env *Environment) ([]dispatch.Handler, map[string]dispatch.Handler, error) {
	built := make([]dispatch.Handler, 0, len(analyses))
	byID := make(map[string]dispatch.Handler, len(analyses))
	var deferredEntries []deferredAnalysis

	for _, a := range analyses {
		h, deferredBuild, err := buildOneDetector(a, env)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: analysis %q: %w", a.ID, err)
		}
		if deferredBuild != nil {
			deferredEntries = append(deferredEntries, deferredAnalysis{entry: a, build: deferredBuild})
			continue
		}
		wireCrossCutting(h, a, env)
		built = append(built, h)
		byID[a.ID] = h
	}

	for _, def := range deferredEntries {
		h, err := def.build(byID)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: analysis %q: %w", def.entry.ID, err)
		}
		wireCrossCutting(h, def.entry, env)
		built = append(built, h)
		byID[def.entry.ID] = h
	}

	return built, byID, nil
}

// wireCrossCutting attaches telemetry and, for Persistable/TimeTriggered
// detectors, loads prior state (a load failure is logged and the detector
// starts without it) and registers the detector for the persistence
// sweep (§4.6) and the Time Trigger (§4.5) —
// behaviour every detector type gets uniformly, independent of its own
// constructor. Handlers that aren't full detector.Detectors (the two
// sidecar/transformer types) simply match none of these assertions.
func wireCrossCutting(h dispatch.Handler, a config.Analysis, env *Environment) {
	if t, ok := h.(interface {
		SetTelemetry(telemetry.Recorder)
	}); ok && env.Telemetry != nil {
		t.SetTelemetry(env.Telemetry)
		env.Telemetry.Register(a.Name)
	}

	if p, ok := h.(detector.Persistable); ok {
		if err := p.LoadPersistenceData(); err != nil {
			logging.Errorf("pipeline: loading persisted state for %q: %s", a.ID, err)
		}
		if env.Persistence != nil {
			env.Persistence.Add(p)
		}
	}

	if td, ok := h.(detector.TimeTriggered); ok && env.TimeTrigger != nil {
		if err := env.TimeTrigger.Register(a.Name, td); err != nil {
			env.onError(fmt.Errorf("pipeline: scheduling %q: %w", a.ID, err))
		}
	}
}

// buildOneDetector builds a's handler directly, or — for the one
// dispatch-chain transformer type whose constructor needs another
// handler's ReceiveAtom — returns a deferred build function instead.
func buildOneDetector(a config.Analysis, env *Environment) (dispatch.Handler, func(map[string]dispatch.Handler) (dispatch.Handler, error), error) {
	sink := env.sinkFor(a)

	switch a.Type {
	case "new-match-path":
		var args newMatchPathArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		stopAt, err := args.stopTime()
		if err != nil {
			return nil, nil, err
		}
		window, err := args.slidingWindow()
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewNewMatchPath(a.Name, args.PersistenceID, sink, env.Store(), env.LearnMode, args.Learn, stopAt, window), nil, nil

	case "new-match-path-value":
		var args newMatchPathArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		stopAt, err := args.stopTime()
		if err != nil {
			return nil, nil, err
		}
		window, err := args.slidingWindow()
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewNewMatchPathValue(a.Name, args.PersistenceID, sink, env.Store(), env.LearnMode, args.Learn, stopAt, window), nil, nil

	case "new-match-path-value-combo":
		var args newMatchPathValueComboArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		stopAt, err := args.stopTime()
		if err != nil {
			return nil, nil, err
		}
		window, err := args.slidingWindow()
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewNewMatchPathValueCombo(a.Name, args.PersistenceID, args.Paths, sink, env.Store(), env.LearnMode, args.Learn, stopAt, window), nil, nil

	case "enhanced-new-value-combo":
		var args enhancedNewValueComboArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		stopAt, err := args.stopTime()
		if err != nil {
			return nil, nil, err
		}
		window, err := args.slidingWindow()
		if err != nil {
			return nil, nil, err
		}
		maxExamples := args.MaxExamplesPerCombo
		return detectors.NewEnhancedNewValueCombo(a.Name, args.PersistenceID, args.Paths, maxExamples, sink, env.Store(), env.LearnMode, args.Learn, stopAt, window), nil, nil

	case "value-range":
		var args valueRangeArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		stopAt, err := args.stopTime()
		if err != nil {
			return nil, nil, err
		}
		window, err := args.slidingWindow()
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewValueRange(detectors.ValueRangeConfig{
			Name:                  a.Name,
			PersistenceID:         args.PersistenceID,
			IDPathList:            args.IDPathList,
			TargetPathList:        args.TargetPathList,
			IgnoreList:            args.IgnoreList,
			ConstraintList:        args.ConstraintList,
			Sink:                  sink,
			Store:                 env.Store(),
			LearnMode:             env.LearnMode,
			DeclaredLearn:         args.Learn,
			StopLearningTime:      stopAt,
			StopLearningNoAnomaly: window,
		}), nil, nil

	case "histogram":
		var args histogramArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		interval, err := parseOptionalDuration(args.ReportInterval)
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewHistogram(detectors.HistogramConfig{
			Name:           a.Name,
			TargetPathList: args.TargetPathList,
			PathDependent:  args.PathDependent,
			ReportInterval: interval,
			Sink:           sink,
		}), nil, nil

	case "match-value-average-change":
		var args matchValueAverageChangeArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		stopAt, err := args.stopTime()
		if err != nil {
			return nil, nil, err
		}
		window, err := args.slidingWindow()
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewMatchValueAverageChange(detectors.MatchValueAverageChangeConfig{
			Name:                  a.Name,
			PersistenceID:         args.PersistenceID,
			TargetPathList:        args.TargetPathList,
			Sigma:                 args.Sigma,
			MinSamples:            args.MinSamples,
			Sink:                  sink,
			Store:                 env.Store(),
			LearnMode:             env.LearnMode,
			DeclaredLearn:         args.Learn,
			StopLearningTime:      stopAt,
			StopLearningNoAnomaly: window,
		}), nil, nil

	case "time-correlation-violation":
		var args timeCorrelationViolationArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		pairs := make([]detectors.CorrelationPair, 0, len(args.Pairs))
		for i, p := range args.Pairs {
			ruleA, err := buildRule(p.A)
			if err != nil {
				return nil, nil, fmt.Errorf("pair %d: rule a: %w", i, err)
			}
			ruleB, err := buildRule(p.B)
			if err != nil {
				return nil, nil, fmt.Errorf("pair %d: rule b: %w", i, err)
			}
			window, err := time.ParseDuration(p.Window)
			if err != nil {
				return nil, nil, fmt.Errorf("pair %d: parsing window %q: %w", i, p.Window, err)
			}
			pairs = append(pairs, detectors.CorrelationPair{
				Name: p.Name, A: ruleA, B: ruleB, Window: window, HysteresisFactor: p.HysteresisFactor,
			})
		}
		return detectors.NewTimeCorrelationViolation(a.Name, pairs, sink), nil, nil

	case "timestamps-unsorted":
		var args timestampsUnsortedArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		return detectors.NewTimestampsUnsorted(a.Name, sink, args.ExitOnError), nil, nil

	case "allowlist-violation":
		var args allowlistViolationArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		rules, err := buildRuleObjects(args.Rules)
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewAllowlistViolation(a.Name, rules, sink), nil, nil

	case "parser-count":
		var args parserCountArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		interval, err := parseOptionalDuration(args.ReportInterval)
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewParserCount(detectors.ParserCountConfig{
			Name:           a.Name,
			TargetPathList: args.TargetPathList,
			TargetLabels:   args.TargetLabels,
			ReportInterval: interval,
			SplitReports:   args.SplitReports,
			Sink:           sink,
		}), nil, nil

	case "match-value-stream-writer":
		var args matchValueStreamWriterArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		w, err := openOutput(args.OutputPath)
		if err != nil {
			return nil, nil, err
		}
		return detectors.NewMatchValueStreamWriter(args.Paths, args.Separator, w), nil, nil

	case "monotonic-timestamp-adjust":
		var args monotonicTimestampAdjustArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		if args.NextID == "" {
			return nil, nil, fmt.Errorf("monotonic-timestamp-adjust requires next_id")
		}
		return nil, func(byID map[string]dispatch.Handler) (dispatch.Handler, error) {
			next, ok := byID[args.NextID]
			if !ok {
				return nil, fmt.Errorf("next_id %q does not name an earlier analysis entry", args.NextID)
			}
			return detectors.NewMonotonicTimestampAdjust(next.ReceiveAtom), nil
		}, nil

	case "starvation":
		var args starvationArgs
		if err := a.Decode(&args); err != nil {
			return nil, nil, err
		}
		var filter rule.Rule
		if args.Filter != nil {
			f, err := buildRule(args.Filter)
			if err != nil {
				return nil, nil, err
			}
			filter = f
		}
		maxSilence, err := time.ParseDuration(args.MaxSilence)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing max_silence %q: %w", args.MaxSilence, err)
		}
		return detectors.NewStarvation(a.Name, filter, maxSilence, sink, env.StartedAt), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown detector type %q", a.Type)
	}
}

func buildRuleObjects(raw []any) ([]rule.Rule, error) {
	rules := make([]rule.Rule, 0, len(raw))
	for i, r := range raw {
		built, err := buildRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, built)
	}
	return rules, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("pipeline: parsing duration %q: %w", s, err)
	}
	return d, nil
}

func openOutput(path string) (io.Writer, error) {
	if path == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening %s: %w", path, err)
	}
	return f, nil
}

// buildSink instantiates one EventHandlers entry. "stream" (StreamSink)
// is the one built-in type (§11); output_path empty means stdout.
func buildSink(h config.SinkEntry) (event.Sink, error) {
	switch h.Type {
	case "stream":
		var args struct {
			OutputPath string `yaml:"output_path,omitempty"`
		}
		if err := h.Decode(&args); err != nil {
			return nil, err
		}
		w, err := openOutput(args.OutputPath)
		if err != nil {
			return nil, err
		}
		return event.NewStreamSink(w), nil
	default:
		return nil, fmt.Errorf("pipeline: unknown event handler type %q", h.Type)
	}
}
