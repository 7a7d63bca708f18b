// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clusterwatch/sentryd/internal/parser"
)

// parserEntry is one decoded Parser list element: its recognised fields as
// a generic map (ready for parser.Registry.Build), plus the bits the
// config layer itself needs to resolve references (id, type, start, and
// the ordered child-id lists hidden inside args/branch_model_dict/
// key_parser_dict).
type parserEntry struct {
	id       string
	typeName parser.TypeName
	start    bool
	raw      map[string]any
	children []string // ids of parser entries this one references, in order
}

// decodeParserEntry turns one Parser list item's yaml.Node into a
// parserEntry: a generic raw map for Build, plus the "<field>_keys"
// ordering hints internal/parser/build.go's branchKeyOrder requires for
// branch_model_dict and key_parser_dict — a plain map[string]any decode
// loses YAML mapping-key order, so it must be captured here, from the
// node tree, before it's gone.
func decodeParserEntry(n *yaml.Node) (parserEntry, error) {
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		return parserEntry{}, fmt.Errorf("config: parser entry: %w", err)
	}

	id, _ := raw["id"].(string)
	if id == "" {
		return parserEntry{}, fmt.Errorf("config: parser entry missing required field \"id\"")
	}
	typ, _ := raw["type"].(string)
	if typ == "" {
		return parserEntry{}, fmt.Errorf("config: parser entry %q missing required field \"type\"", id)
	}
	start, _ := raw["start"].(bool)

	var children []string
	switch parser.TypeName(typ) {
	case parser.TypeSequence, parser.TypeFirstMatch, parser.TypeOptional, parser.TypeRepeated:
		children = stringList(raw["args"])
	case parser.TypeElementValueBranch:
		keys, values := orderedMapPairs(n, "branch_model_dict")
		raw["branch_model_dict_keys"] = keys
		children = values
		if def, ok := raw["default_model"].(string); ok && def != "" {
			children = append(children, def)
		}
	case parser.TypeKeyValue:
		keys, values := orderedMapPairs(n, "key_parser_dict")
		raw["key_parser_dict_keys"] = keys
		children = values
	}

	return parserEntry{id: id, typeName: parser.TypeName(typ), start: start, raw: raw, children: children}, nil
}

// orderedMapPairs returns field's keys and values, in YAML declaration
// order, by walking n's own Content rather than a decoded (unordered) Go
// map. field's values are expected to be scalar parser-id references.
func orderedMapPairs(n *yaml.Node, field string) (keys, values []string) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != field {
			continue
		}
		m := n.Content[i+1]
		if m.Kind != yaml.MappingNode {
			return nil, nil
		}
		for j := 0; j+1 < len(m.Content); j += 2 {
			keys = append(keys, m.Content[j].Value)
			values = append(values, m.Content[j+1].Value)
		}
		return keys, values
	}
	return nil, nil
}

func stringList(v any) []string {
	switch list := v.(type) {
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
	default:
		return nil
	}
}

// BuildParserTree assembles the Parser Model root from raw, the
// document's decoded Parser list (§4.1, §6 validation rules): exactly one
// entry may declare start: true, every args/branch_model_dict/
// key_parser_dict reference must resolve to a declared id, and no entry
// may reference itself transitively.
func BuildParserTree(reg *parser.Registry, raw []yaml.Node) (parser.Node, error) {
	entries := make(map[string]parserEntry, len(raw))
	var startID string
	startCount := 0
	order := make([]string, 0, len(raw))

	for i := range raw {
		e, err := decodeParserEntry(&raw[i])
		if err != nil {
			return nil, err
		}
		if _, dup := entries[e.id]; dup {
			return nil, fmt.Errorf("config: duplicate parser id %q", e.id)
		}
		entries[e.id] = e
		order = append(order, e.id)
		if e.start {
			startCount++
			startID = e.id
		}
	}

	switch startCount {
	case 0:
		return nil, fmt.Errorf("config: no Parser entry declares start: true")
	default:
		if startCount > 1 {
			return nil, fmt.Errorf("config: %d Parser entries declare start: true, exactly one is required", startCount)
		}
	}

	built := make(map[string]parser.Node, len(entries))
	building := make(map[string]bool, len(entries))

	var build func(id string) (parser.Node, error)
	build = func(id string) (parser.Node, error) {
		if n, ok := built[id]; ok {
			return n, nil
		}
		if building[id] {
			return nil, fmt.Errorf("config: cyclic parser reference involving %q", id)
		}
		e, ok := entries[id]
		if !ok {
			return nil, fmt.Errorf("config: unresolved parser reference %q", id)
		}
		building[id] = true
		defer delete(building, id)

		children := make([]parser.Node, 0, len(e.children))
		for _, cid := range e.children {
			c, err := build(cid)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}

		n, err := reg.Build(e.typeName, e.id, e.raw, children)
		if err != nil {
			return nil, fmt.Errorf("config: building parser %q: %w", id, err)
		}
		built[id] = n
		return n, nil
	}

	// Build every declared entry, in declaration order, so references and
	// cycles are checked even in entries the start entry does not reach.
	for _, id := range order {
		if _, err := build(id); err != nil {
			return nil, err
		}
	}
	return build(startID)
}
