// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config implements the configuration document the pipeline is
// built from (§6 External Interfaces, §10.2): a YAML decode step
// (`gopkg.in/yaml.v3`) followed by gross-shape schema validation
// (`santhosh-tekuri/jsonschema/v5`) and the engine's own reference-
// resolution pass over the Parser/Analysis/EventHandlers sections, the
// same two-stage "decode, then validate" split as the teacher's
// `internal/config.Init` (schema.Validate before json.Decoder).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clusterwatch/sentryd/internal/detector"
)

// Document is the top-level configuration shape (§6): a Parser Model
// description, the Input sources, the Analysis (detector) instantiations,
// the EventHandlers (sink) list, and an optional global LearnMode
// override.
type Document struct {
	Parser        []yaml.Node       `yaml:"Parser"`
	Input         InputConfig       `yaml:"Input"`
	Analysis      []Analysis        `yaml:"Analysis"`
	EventHandlers []SinkEntry       `yaml:"EventHandlers"`
	Persistence   PersistenceConfig `yaml:"Persistence,omitempty"`
	LearnMode     *bool             `yaml:"LearnMode"`

	// StatisticsInterval is how often cmd/sentryd calls LogStatistics on
	// every built detector (§4.4's log_statistics); a duration string
	// parsed by time.ParseDuration. Empty means the caller's own default.
	StatisticsInterval string `yaml:"StatisticsInterval,omitempty"`
}

// PersistenceConfig selects the Store backend built detectors' persisted
// state is read from and written to (§4.6). Backend is "fs" (one JSON
// file per key under Path), "sqlite" (one SQLite database file at Path),
// or left empty to run with persistence disabled.
type PersistenceConfig struct {
	Backend string `yaml:"Backend,omitempty"`
	Path    string `yaml:"Path,omitempty"`
}

// InputConfig describes the byte sources feeding the pipeline and the
// multi-source synchronisation policy (§4.2).
type InputConfig struct {
	MultiSource   bool         `yaml:"MultiSource"`
	TimestampPath string       `yaml:"TimestampPath"`
	GracePeriod   string       `yaml:"GracePeriod,omitempty"`
	Sources       []SourceSpec `yaml:"Sources"`
}

// SourceSpec names one Input source. Type selects which internal/source
// constructor builds it: "file", "stdin", or "nats".
type SourceSpec struct {
	ID   string    `yaml:"id"`
	Type string    `yaml:"type"`
	Path string    `yaml:"path,omitempty"`
	NATS *NATSSpec `yaml:"nats,omitempty"`
}

// NATSSpec is a "nats"-typed SourceSpec's connection detail, the same
// shape as the teacher's pkg/nats.NatsConfig plus the subject/queue a
// Source needs to subscribe.
type NATSSpec struct {
	Address       string `yaml:"address"`
	Subject       string `yaml:"subject"`
	Queue         string `yaml:"queue,omitempty"`
	Username      string `yaml:"username,omitempty"`
	Password      string `yaml:"password,omitempty"`
	CredsFilePath string `yaml:"creds-file-path,omitempty"`
}

// Analysis instantiates one detector (or sidecar/transformer) by Type,
// with Args left as a raw yaml.Node so each detector's own constructor
// decodes whatever shape it needs — mirroring how internal/parser.Build
// takes a generic raw map rather than one struct per node variant.
type Analysis struct {
	ID              string    `yaml:"id"`
	Type            string    `yaml:"type"`
	Name            string    `yaml:"name"`
	PersistenceID   string    `yaml:"persistence_id,omitempty"`
	AutoIncludeFlag *bool     `yaml:"auto_include_flag,omitempty"`
	SinkID          string    `yaml:"sink_id,omitempty"`
	Args            yaml.Node `yaml:"args"`
}

// SinkEntry instantiates one EventHandlers entry by Type ("stream" is the
// one built-in sink, §11's StreamSink).
type SinkEntry struct {
	ID   string    `yaml:"id"`
	Type string    `yaml:"type"`
	Args yaml.Node `yaml:"args"`
}

// Decode unmarshals a's Args into v, the same way a detector factory
// decodes a parser node's raw fields — a no-op returning nil if Args
// was never set (detectors with no parameters, e.g. timestamps-unsorted).
func (a Analysis) Decode(v any) error {
	if a.Args.Kind == 0 {
		return nil
	}
	if err := a.Args.Decode(v); err != nil {
		return fmt.Errorf("config: analysis %q: decoding args: %w", a.ID, err)
	}
	return nil
}

// Decode unmarshals s's Args into v.
func (s SinkEntry) Decode(v any) error {
	if s.Args.Kind == 0 {
		return nil
	}
	if err := s.Args.Decode(v); err != nil {
		return fmt.Errorf("config: event handler %q: decoding args: %w", s.ID, err)
	}
	return nil
}

// LearnModeOverride resolves the document's tri-state global learn-mode
// override (§4.4 "Global override"), applied once at pipeline build time.
func (d *Document) LearnModeOverride() detector.LearnMode {
	if d.LearnMode == nil {
		return detector.LearnModeUnset
	}
	if *d.LearnMode {
		return detector.LearnModeForceOn
	}
	return detector.LearnModeForceOff
}

// Parse decodes raw YAML bytes into a Document. Structural/semantic
// validation is a separate step (Validate); Parse only reports malformed
// YAML.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: decoding document: %w", err)
	}
	return &doc, nil
}

// Load reads path and parses it. A missing file is reported as a plain
// error, not a ValidationError: it is an operational mistake (wrong
// path), not a malformed document.
func Load(path string) (*Document, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return raw, nil
}
