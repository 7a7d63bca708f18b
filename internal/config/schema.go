// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema checks the document's gross shape (§10.2): are Parser,
// Input, Analysis, EventHandlers the right JSON types. It deliberately
// does not know about parser/detector/sink type strings or cross-section
// references — that's the reference-resolution pass in validate.go, the
// same split the teacher draws between schema.Validate (pkg/schema) and
// the hand-written checks in internal/config.Init.
const documentSchema = `{
  "type": "object",
  "properties": {
    "Parser": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id":   { "type": "string" },
          "type": { "type": "string" },
          "start": { "type": "boolean" }
        },
        "required": ["id", "type"]
      },
      "minItems": 1
    },
    "Input": {
      "type": "object",
      "properties": {
        "MultiSource":   { "type": "boolean" },
        "TimestampPath": { "type": "string" },
        "Sources": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "id":   { "type": "string" },
              "type": { "type": "string", "enum": ["file", "stdin", "nats"] }
            },
            "required": ["id", "type"]
          }
        }
      }
    },
    "Analysis": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id":   { "type": "string" },
          "type": { "type": "string" },
          "name": { "type": "string" }
        },
        "required": ["id", "type"]
      }
    },
    "EventHandlers": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id":   { "type": "string" },
          "type": { "type": "string" }
        },
        "required": ["id", "type"]
      }
    },
    "Persistence": {
      "type": "object",
      "properties": {
        "Backend": { "type": "string", "enum": ["fs", "sqlite", ""] },
        "Path":    { "type": "string" }
      }
    },
    "LearnMode": { "type": ["boolean", "null"] },
    "StatisticsInterval": { "type": "string" }
  },
  "required": ["Parser", "Input", "Analysis"]
}`

var compiledDocumentSchema = func() *jsonschema.Schema {
	s, err := jsonschema.CompileString("sentryd-config.schema.json", documentSchema)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema does not compile: %s", err))
	}
	return s
}()

// validateSchema runs instance (a plain JSON-compatible value: maps,
// slices, strings, float64, bool, nil) through the embedded schema.
func validateSchema(instance any) error {
	if err := compiledDocumentSchema.Validate(instance); err != nil {
		return fmt.Errorf("config: schema validation failed: %w", err)
	}
	return nil
}
