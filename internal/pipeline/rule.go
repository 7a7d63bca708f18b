// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pipeline assembles the Parser Model, Dispatch Fabric, concrete
// detectors, Time Trigger, Persistence, and Event sinks described by a
// config.Document into a running engine — the construction step
// cmd/sentryd's main wires at startup, grounded on the overall
// "build everything from one config, then run until signalled" shape of
// the teacher's cmd/cc-backend/main.go.
package pipeline

import (
	"fmt"

	"github.com/clusterwatch/sentryd/internal/detector/rule"
)

// buildRule turns a generically-decoded YAML value (map[string]any, as
// produced by decoding an Analysis/SinkEntry's Args field) into a
// rule.Rule, the same recursive "type" + operands shape
// internal/parser/build.go reads for parser node args, applied here to
// boolean rule expressions instead of byte grammars.
//
// Recognised shapes:
//
//	{type: and, rules: [...]}
//	{type: or, rules: [...]}
//	{type: not, rule: {...}}
//	{type: value, path: "...", value: "..."}
//	{type: value_list, path: "...", values: ["...", ...]}
//	{type: rfc1918, path: "..."}
//	{type: expr, expr: "..."}
func buildRule(raw any) (rule.Rule, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pipeline: rule must be a mapping, got %T", raw)
	}
	kind, _ := m["type"].(string)

	switch kind {
	case "and":
		rules, err := buildRuleList(m["rules"])
		if err != nil {
			return nil, err
		}
		return rule.And(rules), nil

	case "or":
		rules, err := buildRuleList(m["rules"])
		if err != nil {
			return nil, err
		}
		return rule.Or(rules), nil

	case "not":
		inner, ok := m["rule"]
		if !ok {
			return nil, fmt.Errorf(`pipeline: rule type "not" requires a "rule" field`)
		}
		r, err := buildRule(inner)
		if err != nil {
			return nil, err
		}
		return rule.Not{Rule: r}, nil

	case "value":
		path, _ := m["path"].(string)
		value, _ := m["value"].(string)
		if path == "" {
			return nil, fmt.Errorf(`pipeline: rule type "value" requires a non-empty "path"`)
		}
		return rule.ValueMatch{Path: path, Value: value}, nil

	case "value_list":
		path, _ := m["path"].(string)
		if path == "" {
			return nil, fmt.Errorf(`pipeline: rule type "value_list" requires a non-empty "path"`)
		}
		return rule.ValueListMatch{Path: path, Values: stringSlice(m["values"])}, nil

	case "rfc1918":
		path, _ := m["path"].(string)
		if path == "" {
			return nil, fmt.Errorf(`pipeline: rule type "rfc1918" requires a non-empty "path"`)
		}
		return rule.IPv4InRFC1918{Path: path}, nil

	case "expr":
		src, _ := m["expr"].(string)
		if src == "" {
			return nil, fmt.Errorf(`pipeline: rule type "expr" requires a non-empty "expr"`)
		}
		r, err := rule.NewExpr(src)
		if err != nil {
			return nil, fmt.Errorf("pipeline: building expr rule: %w", err)
		}
		return r, nil

	default:
		return nil, fmt.Errorf("pipeline: unknown rule type %q", kind)
	}
}

func buildRuleList(raw any) ([]rule.Rule, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("pipeline: expected a list of rules, got %T", raw)
	}
	rules := make([]rule.Rule, 0, len(list))
	for i, item := range list {
		r, err := buildRule(item)
		if err != nil {
			return nil, fmt.Errorf("pipeline: rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func stringSlice(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
