// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterwatch/sentryd/internal/config"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const allowlistConfig = `
Parser:
  - id: level
    type: fixed-wordlist
    args: [INFO, WARN]
  - id: sep
    type: fixed
    args: ": "
  - id: msg
    type: variable-byte
    args: "abcdefghijklmnopqrstuvwxyz "
    min_bytes: 1
  - id: line
    type: sequence
    start: true
    args: [level, sep, msg]
Input:
  MultiSource: false
  Sources:
    - id: access
      type: file
      path: {{logPath}}
Analysis:
  - id: a1
    type: allowlist-violation
    name: OnlyInfoAllowed
    args:
      rules:
        - type: value
          path: line/level
          value: INFO
EventHandlers:
  - id: out
    type: stream
`

func TestPipelineBuildAndRunDispatchesAllLines(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "access.log", "INFO: all good\nWARN: disk low\n")
	cfgPath := writeFile(t, dir, "sentryd.yaml", strings.ReplaceAll(allowlistConfig, "{{logPath}}", logPath))

	doc, root, err := config.LoadAndValidate(cfgPath)
	require.NoError(t, err)

	p, err := Build(doc, root, NullStore{})
	require.NoError(t, err)

	require.NoError(t, p.Run())
	require.Len(t, p.detectors, 1)
	p.detectors[0].LogStatistics("a1") // exercises the telemetry/logging path without asserting its output

	assert.NoError(t, p.Shutdown())
}

func TestPipelineRejectsEmptySources(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "sentryd.yaml", `
Parser:
  - id: root
    type: fixed
    args: "x"
    start: true
Input:
  MultiSource: false
  Sources: []
Analysis: []
`)
	doc, root, err := config.LoadAndValidate(cfgPath)
	require.NoError(t, err)

	_, err = Build(doc, root, NullStore{})
	assert.Error(t, err, "expected an error building a pipeline with no Input.Sources")
}

func TestBuildRuleRoundTripsThroughGenericallyDecodedArgs(t *testing.T) {
	raw := map[string]any{
		"type": "and",
		"rules": []any{
			map[string]any{"type": "value", "path": "line/level", "value": "WARN"},
			map[string]any{"type": "not", "rule": map[string]any{
				"type": "value_list", "path": "line/level", "values": []any{"DEBUG"},
			}},
		},
	}
	r, err := buildRule(raw)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestOpenStoreSelectsBackend(t *testing.T) {
	_, err := OpenStore(config.PersistenceConfig{})
	require.NoError(t, err)

	dir := t.TempDir()
	fs, err := OpenStore(config.PersistenceConfig{Backend: "fs", Path: dir})
	require.NoError(t, err)
	require.NoError(t, fs.StoreJSON("k", []byte(`{"a":1}`)))

	doc, ok, err := fs.LoadJSON("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(doc))

	_, err = OpenStore(config.PersistenceConfig{Backend: "fs"})
	assert.Error(t, err, "expected an error for backend fs with no Path")

	_, err = OpenStore(config.PersistenceConfig{Backend: "bogus"})
	assert.Error(t, err, "expected an error for an unknown backend")
}

func TestBuildSinkUnknownTypeFails(t *testing.T) {
	_, err := buildSink(config.SinkEntry{ID: "bad", Type: "not-a-real-sink"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-real-sink")
}
