// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clusterwatch/sentryd/internal/parser"
)

// ValidationError aggregates every validation failure found in one pass
// instead of aborting at the first one (§10.3: "config-load returns a
// validation report and aborts only at the top"). Fatal at load either
// way — the pipeline never starts on a partially valid document — but an
// operator fixing a config file wants every mistake listed once, not one
// per run.
type ValidationError struct {
	Causes []error
}

func (e *ValidationError) Error() string {
	if len(e.Causes) == 1 {
		return fmt.Sprintf("config: %s", e.Causes[0])
	}
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("config: %d validation error(s):\n  - %s", len(e.Causes), strings.Join(msgs, "\n  - "))
}

// Unwrap lets errors.Is/errors.As reach any individual cause.
func (e *ValidationError) Unwrap() []error { return e.Causes }

var knownDetectorTypes = map[string]bool{
	"new-match-path":              true,
	"new-match-path-value":        true,
	"new-match-path-value-combo":  true,
	"enhanced-new-value-combo":    true,
	"value-range":                 true,
	"histogram":                   true,
	"match-value-average-change":  true,
	"time-correlation-violation":  true,
	"timestamps-unsorted":         true,
	"allowlist-violation":         true,
	"parser-count":                true,
	"match-value-stream-writer":   true,
	"monotonic-timestamp-adjust":  true,
	"starvation":                  true,
}

var knownSinkTypes = map[string]bool{
	"stream": true,
}

// LoadAndValidate reads path, decodes it once as a typed Document and once
// as a generic value for schema checking, and runs Validate, returning a
// ready Document and built Parser Model root or a *ValidationError
// describing every problem found.
func LoadAndValidate(path string) (*Document, parser.Node, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	doc, err := Parse(raw)
	if err != nil {
		return nil, nil, err
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, nil, fmt.Errorf("config: decoding for schema check: %w", err)
	}

	root, err := Validate(doc, normalizeForSchema(generic))
	if err != nil {
		return nil, nil, err
	}
	return doc, root, nil
}

// normalizeForSchema converts yaml.v3's decoded Go values into the
// map[string]any / []any / string / float64 / bool / nil shape
// santhosh-tekuri/jsonschema/v5 expects, the same normalization a JSON
// decoder gives for free (yaml.v3 decodes integers as int, not float64).
func normalizeForSchema(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeForSchema(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeForSchema(val)
		}
		return out
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return x
	}
}

// Validate runs doc through gross-shape schema validation followed by the
// engine's own reference-resolution pass: the Parser Model must build
// cleanly (exactly one start, every reference resolves, no cycles), and
// every Analysis/EventHandlers entry's type must name a known detector or
// sink. Returns the built Parser Model root on success, ready for the
// pipeline to hand to an Atomizer.
func Validate(doc *Document, schemaInstance any) (parser.Node, error) {
	var errs []error

	if err := validateSchema(schemaInstance); err != nil {
		errs = append(errs, err)
	}

	reg := parser.NewRegistry()
	root, err := BuildParserTree(reg, doc.Parser)
	if err != nil {
		errs = append(errs, err)
	}

	for _, a := range doc.Analysis {
		if !knownDetectorTypes[a.Type] {
			errs = append(errs, fmt.Errorf("analysis %q: unknown detector type %q", a.ID, a.Type))
		}
	}
	for _, h := range doc.EventHandlers {
		if !knownSinkTypes[h.Type] {
			errs = append(errs, fmt.Errorf("event handler %q: unknown sink type %q", h.ID, h.Type))
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Causes: errs}
	}
	return root, nil
}
