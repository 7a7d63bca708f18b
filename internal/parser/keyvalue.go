// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"fmt"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/clusterwatch/sentryd/internal/matchtree"
)

const (
	defaultOptionalKeyPrefix = "optional_key_"
	defaultNullableKeyPrefix = "+"
)

// Flavor selects how KeyValue tokenizes one line into key/value pairs.
type Flavor int

const (
	// FlavorGeneric splits on Delimiter with '=' as the key/value separator,
	// consuming to end of line.
	FlavorGeneric Flavor = iota
	// FlavorInflux delegates tokenizing to the line protocol decoder
	// (measurement, tags, fields, optional trailing timestamp).
	FlavorInflux
)

// KeyValue matches a run of `key=value` pairs separated by Delimiter. Each
// key is looked up in KeyParsers to find the sub-parser that decodes its
// value; a key absent from KeyParsers is captured as raw bytes. A key whose
// declared name carries OptionalKeyPrefix may be absent from the input
// without failing the match; one carrying NullableKeyPrefix may be present
// with an empty value. Strict mode rejects any key present in the input but
// absent from KeyParsers (overridden by AllowAllFields).
type KeyValue struct {
	leaf
	Flavor            Flavor
	Delimiter         byte
	KeyParsers        map[string]Node
	OptionalKeyPrefix string
	NullableKeyPrefix string
	Strict            bool
	IgnoreNull        bool
	AllowAllFields    bool
}

func NewKeyValue(id string, flavor Flavor, delimiter byte, keyParsers map[string]Node, optionalPrefix, nullablePrefix string, strict, ignoreNull, allowAllFields bool) *KeyValue {
	if optionalPrefix == "" {
		optionalPrefix = defaultOptionalKeyPrefix
	}
	if nullablePrefix == "" {
		nullablePrefix = defaultNullableKeyPrefix
	}
	return &KeyValue{
		leaf:              leaf{id: id, typeName: "key-value"},
		Flavor:            flavor,
		Delimiter:         delimiter,
		KeyParsers:        keyParsers,
		OptionalKeyPrefix: optionalPrefix,
		NullableKeyPrefix: nullablePrefix,
		Strict:            strict,
		IgnoreNull:        ignoreNull,
		AllowAllFields:    allowAllFields,
	}
}

func (kv *KeyValue) Parse(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	if kv.Flavor == FlavorInflux {
		return kv.parseInflux(data, offset, parentPath)
	}
	return kv.parseGeneric(data, offset, parentPath, scope)
}

func (kv *KeyValue) parseGeneric(data []byte, offset int, parentPath string, scope *matchtree.Tree) (*Result, error) {
	n := len(data)
	if offset >= n {
		return nil, ErrNoMatch
	}
	path := matchtree.JoinPath(parentPath, kv.id)
	tree := matchtree.NewTree()
	seen := make(map[string]bool, len(kv.KeyParsers))

	i := offset
	for i < n {
		keyStart := i
		for i < n && data[i] != '=' && data[i] != kv.Delimiter {
			i++
		}
		if i >= n || data[i] != '=' {
			// No key=value pair left to consume; stop without failing, the
			// bytes already consumed by prior pairs still count.
			i = keyStart
			break
		}
		key := string(data[keyStart:i])
		i++ // skip '='

		valueStart := i
		for i < n && data[i] != kv.Delimiter {
			i++
		}
		valueEnd := i
		if i < n {
			i++ // skip the pair delimiter
		}

		sub, known := kv.KeyParsers[key]
		if !known {
			if kv.Strict && !kv.AllowAllFields {
				return nil, fmt.Errorf("parser: %q: unknown key %q", kv.id, key)
			}
			raw := data[valueStart:valueEnd]
			el := matchtree.New(matchtree.JoinPath(path, key), raw, matchtree.BytesValue(raw), kv)
			tree.Set(el.Path, el)
			seen[key] = true
			continue
		}
		if valueStart == valueEnd {
			if kv.IgnoreNull {
				seen[key] = true
				continue
			}
			if !isNullableKey(key, kv.NullableKeyPrefix) {
				return nil, fmt.Errorf("parser: %q: empty value for non-nullable key %q", kv.id, key)
			}
			seen[key] = true
			continue
		}
		res, err := sub.Parse(data, valueStart, path, scope)
		if err != nil || res.Consumed != valueEnd-valueStart {
			return nil, fmt.Errorf("parser: %q: value for key %q did not match its sub-parser", kv.id, key)
		}
		tree.Merge("", res.Tree)
		seen[key] = true
	}

	for key := range kv.KeyParsers {
		if seen[key] || isOptionalKey(key, kv.OptionalKeyPrefix) {
			continue
		}
		return nil, fmt.Errorf("parser: %q: required key %q not present", kv.id, key)
	}

	consumed := i - offset
	el := matchtree.New(path, data[offset:offset+consumed], matchtree.BytesValue(data[offset:offset+consumed]), kv)
	tree.Set(path, el)
	return &Result{Consumed: consumed, Element: el, Tree: tree}, nil
}

func isOptionalKey(key, prefix string) bool {
	return len(key) >= len(prefix) && key[:len(prefix)] == prefix
}

func isNullableKey(key, prefix string) bool {
	return len(key) >= len(prefix) && key[:len(prefix)] == prefix
}

// parseInflux tokenizes one InfluxDB line protocol line: measurement,
// optional tag set, field set, optional trailing timestamp. Every tag and
// field becomes its own Element under path/<key>. Float, Int and Uint
// fields all become KindFloat (integers are converted to float64); String
// and Boolean ("1"/"0") fields, tags and the measurement itself are raw
// bytes.
func (kv *KeyValue) parseInflux(data []byte, offset int, parentPath string) (*Result, error) {
	path := matchtree.JoinPath(parentPath, kv.id)
	tree := matchtree.NewTree()

	dec := lineprotocol.NewDecoderWithBytes(data[offset:])
	if !dec.Next() {
		return nil, ErrNoMatch
	}

	measurement, err := dec.Measurement()
	if err != nil {
		return nil, fmt.Errorf("parser: %q: %w", kv.id, err)
	}
	measurementPath := matchtree.JoinPath(path, "measurement")
	tree.Set(measurementPath, matchtree.New(measurementPath, append([]byte(nil), measurement...), matchtree.BytesValue(append([]byte(nil), measurement...)), kv))

	for {
		key, val, err := dec.NextTag()
		if err != nil {
			return nil, fmt.Errorf("parser: %q: tag: %w", kv.id, err)
		}
		if key == nil {
			break
		}
		tagPath := matchtree.JoinPath(path, string(key))
		raw := append([]byte(nil), val...)
		tree.Set(tagPath, matchtree.New(tagPath, raw, matchtree.BytesValue(raw), kv))
	}

	for {
		key, val, err := dec.NextField()
		if err != nil {
			return nil, fmt.Errorf("parser: %q: field: %w", kv.id, err)
		}
		if key == nil {
			break
		}
		fieldPath := matchtree.JoinPath(path, string(key))
		var fv matchtree.Value
		switch val.Kind() {
		case lineprotocol.Float:
			fv = matchtree.FloatValue(val.FloatV())
		case lineprotocol.Int:
			fv = matchtree.FloatValue(float64(val.IntV()))
		case lineprotocol.Uint:
			fv = matchtree.FloatValue(float64(val.UintV()))
		case lineprotocol.String:
			fv = matchtree.BytesValue([]byte(val.StringV()))
		case lineprotocol.Boolean:
			b := byte('0')
			if val.BoolV() {
				b = '1'
			}
			fv = matchtree.BytesValue([]byte{b})
		default:
			return nil, fmt.Errorf("parser: %q: field %q: unsupported value kind %s", kv.id, string(key), val.Kind().String())
		}
		tree.Set(fieldPath, matchtree.New(fieldPath, nil, fv, kv))
	}

	t, err := dec.Time(lineprotocol.Nanosecond, time.Time{})
	consumed := len(data) - offset
	if err == nil {
		tsPath := matchtree.JoinPath(path, "timestamp")
		ts := float64(t.UnixNano()) / 1e9
		tree.Set(tsPath, matchtree.New(tsPath, nil, matchtree.TimestampValue(ts), kv))
	}

	el := matchtree.New(path, data[offset:offset+consumed], matchtree.BytesValue(data[offset:offset+consumed]), kv)
	tree.Set(path, el)
	return &Result{Consumed: consumed, Element: el, Tree: tree}, nil
}
