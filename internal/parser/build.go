// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"fmt"
	"time"
)

// The buildXxx functions below are the Registry's built-in Builders. raw
// holds one parser element's recognised fields (§5 enumeration) after the
// config layer has decoded YAML/JSON into generic Go values; children holds
// already-built sub-Nodes for elements whose `args` reference other parser
// elements, in the order those references were declared.

func strField(raw map[string]any, key, def string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func intField(raw map[string]any, key string, def int) int {
	if v, ok := raw[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func boolField(raw map[string]any, key string, def bool) bool {
	if v, ok := raw[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func bytesField(raw map[string]any, key string, def []byte) []byte {
	if v, ok := raw[key]; ok {
		switch s := v.(type) {
		case string:
			return []byte(s)
		case []byte:
			return s
		}
	}
	return def
}

func byteField(raw map[string]any, key string, def byte) byte {
	b := bytesField(raw, key, []byte{def})
	if len(b) == 0 {
		return def
	}
	return b[0]
}

func stringListField(raw map[string]any, key string) []string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	}
	return nil
}

func parseSignPolicy(s string) SignPolicy {
	switch s {
	case "mandatory":
		return SignMandatory
	case "optional":
		return SignOptional
	default:
		return SignNone
	}
}

func parsePadPolicy(s string) PadPolicy {
	switch s {
	case "zero":
		return PadZero
	case "blank":
		return PadBlank
	default:
		return PadNone
	}
}

func parseExponentPolicy(s string) ExponentPolicy {
	switch s {
	case "mandatory":
		return ExponentMandatory
	case "optional":
		return ExponentOptional
	default:
		return ExponentNone
	}
}

// branchKeyOrder returns the declaration order of a YAML mapping field that
// the config layer must preserve explicitly: Go map iteration order is
// randomized, but which key corresponds to which already-built child Node
// depends on the order the config layer walked the mapping when it built
// those children. The config layer stores that order alongside the decoded
// map under "<field>_keys" ([]string); Build fails loudly rather than
// guess if it is missing, since a silent wrong pairing would be a
// config-loader bug masquerading as a parser bug.
func branchKeyOrder(raw map[string]any, field string) []string {
	return stringListField(raw, field+"_keys")
}

func buildFixed(id string, raw map[string]any, _ []Node) (Node, error) {
	literal := bytesField(raw, "args", nil)
	if len(literal) == 0 {
		return nil, fmt.Errorf("parser: fixed %q: args must be a non-empty literal", id)
	}
	return NewFixed(id, literal), nil
}

func buildVariableByte(id string, raw map[string]any, _ []Node) (Node, error) {
	alphabet := bytesField(raw, "args", nil)
	min := intField(raw, "min_bytes", 1)
	return NewVariableByte(id, alphabet, min), nil
}

func buildDecimalInteger(id string, raw map[string]any, _ []Node) (Node, error) {
	sign := parseSignPolicy(strField(raw, "value_sign_type", "none"))
	pad := parsePadPolicy(strField(raw, "value_pad_type", "none"))
	return NewDecimalInteger(id, sign, pad), nil
}

func buildFloat(id string, raw map[string]any, _ []Node) (Node, error) {
	sign := parseSignPolicy(strField(raw, "value_sign_type", "none"))
	pad := parsePadPolicy(strField(raw, "value_pad_type", "none"))
	exp := parseExponentPolicy(strField(raw, "exponent_type", "none"))
	return NewFloat(id, sign, pad, exp), nil
}

func buildDateTime(id string, raw map[string]any, _ []Node) (Node, error) {
	formats := stringListField(raw, "date_formats")
	if len(formats) == 0 {
		if f := strField(raw, "date_format", ""); f != "" {
			formats = []string{f}
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("parser: datetime %q: date_formats or date_format required", id)
	}
	loc := time.UTC
	if name := strField(raw, "text_locale", ""); name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}
	maxJump := int64(intField(raw, "max_time_jump_seconds", defaultMaxTimeJumpSeconds))
	startYear := intField(raw, "start_year", time.Now().Year())
	scale := 1.0
	if v, ok := raw["timestamp_scale"]; ok {
		if f, ok := v.(float64); ok {
			scale = f
		}
	}
	return NewDateTime(id, formats, loc, maxJump, startYear, scale), nil
}

func buildFixedWordlist(id string, raw map[string]any, _ []Node) (Node, error) {
	words := stringListField(raw, "args")
	if len(words) == 0 {
		return nil, fmt.Errorf("parser: fixed-wordlist %q: args must list at least one word", id)
	}
	out := make([][]byte, len(words))
	for i, w := range words {
		out[i] = []byte(w)
	}
	return NewFixedWordlist(id, out), nil
}

func buildSequence(id string, _ map[string]any, children []Node) (Node, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("parser: sequence %q: requires at least one child", id)
	}
	return NewSequence(id, children), nil
}

func buildFirstMatch(id string, _ map[string]any, children []Node) (Node, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("parser: first-match %q: requires at least one child", id)
	}
	return NewFirstMatch(id, children), nil
}

func buildOptional(id string, _ map[string]any, children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("parser: optional %q: requires exactly one child", id)
	}
	return NewOptional(id, children[0]), nil
}

func buildRepeated(id string, raw map[string]any, children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("parser: repeated %q: requires exactly one child", id)
	}
	min := intField(raw, "min", 0)
	max := intField(raw, "max", 0)
	return NewRepeated(id, children[0], min, max), nil
}

// buildElementValueBranch resolves branch_model_dict's declared values to
// children in declaration order; the config layer passes children in the
// same order it walked branch_model_dict plus, if present, a final entry
// for the default branch.
func buildElementValueBranch(id string, raw map[string]any, children []Node) (Node, error) {
	keys := branchKeyOrder(raw, "branch_model_dict")
	branches := make(map[string]Node, len(keys))
	var def Node
	n := len(children)
	if n > len(keys)+1 {
		return nil, fmt.Errorf("parser: element-value-branch %q: branch_model_dict has %d keys but %d children were built", id, len(keys), n)
	}
	for i, k := range keys {
		if i < n {
			branches[k] = children[i]
		}
	}
	if len(keys) < n {
		def = children[n-1]
	}
	ref := strField(raw, "value_path", strField(raw, "args", ""))
	return NewElementValueBranch(id, ref, branches, def), nil
}

func buildDelimited(id string, raw map[string]any, _ []Node) (Node, error) {
	delim := byteField(raw, "delimiter", ',')
	escape := byteField(raw, "escape", 0)
	consume := boolField(raw, "consume_delimiter", true)
	return NewDelimited(id, delim, escape, consume), nil
}

// buildKeyValue wires key_parser_dict's declared keys to children in
// declaration order, mirroring buildElementValueBranch's convention.
func buildKeyValue(id string, raw map[string]any, children []Node) (Node, error) {
	keys := branchKeyOrder(raw, "key_parser_dict")
	if len(keys) != len(children) {
		return nil, fmt.Errorf("parser: key-value %q: key_parser_dict has %d keys but %d children were built", id, len(keys), len(children))
	}
	keyParsers := make(map[string]Node, len(keys))
	for i, k := range keys {
		keyParsers[k] = children[i]
	}
	flavor := FlavorGeneric
	if strField(raw, "flavor", "") == "influx" {
		flavor = FlavorInflux
	}
	delim := byteField(raw, "delimiter", ',')
	optPrefix := strField(raw, "optional_key_prefix", "")
	nullPrefix := strField(raw, "nullable_key_prefix", "")
	strict := boolField(raw, "strict", false)
	ignoreNull := boolField(raw, "ignore_null", false)
	allowAll := boolField(raw, "allow_all_fields", false)
	return NewKeyValue(id, flavor, delim, keyParsers, optPrefix, nullPrefix, strict, ignoreNull, allowAll), nil
}
