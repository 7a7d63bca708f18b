// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package avrocodec is an alternative encoding for persistence.Store
// documents (§4.6): Avro binary instead of JSON, for detectors whose
// state documents are large enough (a Histogram's per-bucket counts, an
// EnhancedNewValueCombo's seen-combination table) that the smaller wire
// size and schema-checked field types are worth the extra moving part.
// Schema generation and the field/record split below follow the
// teacher's own avro checkpoint encoder
// (internal/memorystore/avroCheckpoint.go's generateSchema/generateRecord),
// generalised from that encoder's single "double" field type to every
// scalar shape a detector's persisted document actually contains.
package avrocodec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/linkedin/goavro/v2"
)

// Codec marshals Go values to and from Avro binary, regenerating its
// schema whenever a document's field set changes. One Codec is meant to
// be shared by every document of a given detector class: most persisted
// documents have a stable field set, so the schema (and the goavro.Codec
// compiled from it) is normally built once and reused. Every encoded
// blob carries its own schema (a length-prefixed JSON header ahead of the
// Avro binary body), so Unmarshal never depends on this particular Codec
// instance having seen a matching Marshal call first — required for the
// common case of a freshly constructed Codec decoding a document written
// by a previous process run (§4.6's "survive restarts").
type Codec struct {
	mu       sync.Mutex
	compiled map[string]*goavro.Codec
}

// New returns an empty Codec.
func New() *Codec {
	return &Codec{compiled: make(map[string]*goavro.Codec)}
}

// avroField is one field of the generated record schema, the same shape
// as the teacher's inline map literal in generateSchema.
type avroField struct {
	Name    string `json:"name"`
	Type    any    `json:"type"`
	Default any    `json:"default"`
}

// Marshal encodes v (any JSON-marshalable value, typically a detector's
// persisted-state struct) as Avro binary. v is round-tripped through
// encoding/json first so arbitrary struct types reach the field-inference
// step as the same map[string]any shape json.Unmarshal would hand a Store
// reader, not as their original Go type.
func (c *Codec) Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("avrocodec: marshaling to JSON: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("avrocodec: value is not a JSON object: %w", err)
	}

	schema, err := generateSchema(record)
	if err != nil {
		return nil, err
	}
	codec, err := c.compile(schema)
	if err != nil {
		return nil, err
	}

	native := nativeRecord(record)
	bin, err := codec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, fmt.Errorf("avrocodec: encoding record: %w", err)
	}
	return envelope(schema, bin), nil
}

// Unmarshal decodes a blob produced by Marshal back into v, again
// round-tripping through encoding/json so v can be any struct pointer,
// not just a map. The schema used to encode data travels with it (see
// envelope), so this works even on a Codec that has never itself called
// Marshal — the cold-start case after a process restart.
func (c *Codec) Unmarshal(data []byte, v any) error {
	schema, body, err := splitEnvelope(data)
	if err != nil {
		return err
	}
	codec, err := c.compile(schema)
	if err != nil {
		return err
	}

	native, _, err := codec.NativeFromBinary(body)
	if err != nil {
		return fmt.Errorf("avrocodec: decoding record: %w", err)
	}
	record, ok := native.(map[string]any)
	if !ok {
		return fmt.Errorf("avrocodec: decoded value is not a record")
	}

	raw, err := json.Marshal(denativeRecord(record))
	if err != nil {
		return fmt.Errorf("avrocodec: re-marshaling decoded record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("avrocodec: decoding into %T: %w", v, err)
	}
	return nil
}

// compile returns a goavro.Codec for schema, compiling it once and
// caching by the schema's exact text thereafter — the same "only rebuild
// on schema drift" shortcut the teacher's avroCheckpoint.go compareSchema
// takes, simplified here to an exact-text cache since each encoded blob
// names its own schema explicitly rather than needing reconciliation
// against one evolving on-disk copy.
func (c *Codec) compile(schema string) (*goavro.Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if codec, ok := c.compiled[schema]; ok {
		return codec, nil
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("avrocodec: compiling schema: %w", err)
	}
	c.compiled[schema] = codec
	return codec, nil
}

// envelope prepends schema (as a 4-byte big-endian length followed by its
// UTF-8 bytes) to an Avro-encoded body, so the blob is self-describing.
func envelope(schema string, body []byte) []byte {
	out := make([]byte, 4+len(schema)+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(len(schema)))
	copy(out[4:], schema)
	copy(out[4+len(schema):], body)
	return out
}

// splitEnvelope reverses envelope.
func splitEnvelope(data []byte) (schema string, body []byte, err error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("avrocodec: blob too short to contain a schema header")
	}
	n := binary.BigEndian.Uint32(data[:4])
	if uint64(n) > uint64(len(data)-4) {
		return "", nil, fmt.Errorf("avrocodec: corrupt schema header")
	}
	schema = string(data[4 : 4+n])
	body = data[4+n:]
	return schema, body, nil
}

// generateSchema builds a record schema from record's top-level fields,
// one field per key, typed as a nullable union of the field's own Avro
// type so a field absent in a later document (detector state that drops
// a bucket) decodes as null rather than failing the whole record.
func generateSchema(record map[string]any) (string, error) {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]avroField, 0, len(names))
	for _, name := range names {
		fields = append(fields, avroField{
			Name:    name,
			Type:    []string{"null", avroTypeOf(record[name])},
			Default: nil,
		})
	}

	schema := map[string]any{
		"type":   "record",
		"name":   "PersistedDocument",
		"fields": fields,
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("avrocodec: marshaling generated schema: %w", err)
	}
	return string(raw), nil
}

// avroTypeOf maps a json.Unmarshal-produced value to the Avro primitive
// that holds it. Nested objects/arrays are stored as their JSON text
// (Avro's "string") rather than modeled structurally: detector state
// fields with that shape (a Histogram's bucket map, a combo table) vary
// in structure between detector classes, and a flat field-per-key schema
// can't describe them without becoming detector-specific.
func avroTypeOf(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64:
		return "double"
	case string:
		return "string"
	default:
		return "string"
	}
}

// nativeRecord converts record into the shape goavro's BinaryFromNative
// expects for the union-typed fields generateSchema produces: each value
// wrapped as map[string]any{avroType: value}, or nil for a null field.
// Nested objects/arrays are flattened to their JSON text per avroTypeOf.
func nativeRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for name, v := range record {
		if v == nil {
			out[name] = nil
			continue
		}
		switch val := v.(type) {
		case bool:
			out[name] = map[string]any{"boolean": val}
		case float64:
			out[name] = map[string]any{"double": val}
		case string:
			out[name] = map[string]any{"string": val}
		default:
			raw, _ := json.Marshal(val)
			out[name] = map[string]any{"string": string(raw)}
		}
	}
	return out
}

// denativeRecord undoes nativeRecord's union wrapping after a decode,
// re-parsing any field whose JSON text looks like an object or array back
// into its structural form so Unmarshal's caller sees the same shape it
// originally passed to Marshal.
func denativeRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for name, v := range record {
		if v == nil {
			out[name] = nil
			continue
		}
		wrapped, ok := v.(map[string]any)
		if !ok || len(wrapped) != 1 {
			out[name] = v
			continue
		}
		for _, inner := range wrapped {
			if s, ok := inner.(string); ok && len(s) > 0 && (s[0] == '{' || s[0] == '[') {
				var structured any
				if err := json.Unmarshal([]byte(s), &structured); err == nil {
					out[name] = structured
					continue
				}
			}
			out[name] = inner
		}
	}
	return out
}
