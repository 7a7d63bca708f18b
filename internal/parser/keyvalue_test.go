// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "testing"

func TestKeyValueGenericDecodesTypedValues(t *testing.T) {
	kv := NewKeyValue("tags", FlavorGeneric, ',', map[string]Node{
		"host": NewVariableByte("host", []byte("abcdefghijklmnopqrstuvwxyz0123456789-"), 1),
		"cpu":  NewDecimalInteger("cpu", SignNone, PadNone),
	}, "", "", false, false, false)

	res, err := ParseRoot(kv, []byte("host=node01,cpu=4"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if el := res.Tree.GetElement("tags/host"); el == nil || el.Value.String() != "node01" {
		t.Errorf("tags/host = %v, want node01", el)
	}
	if el := res.Tree.GetElement("tags/cpu"); el == nil || el.Value.Int != 4 {
		t.Errorf("tags/cpu = %v, want 4", el)
	}
}

func TestKeyValueStrictRejectsUnknownKey(t *testing.T) {
	kv := NewKeyValue("tags", FlavorGeneric, ',', map[string]Node{
		"host": NewVariableByte("host", []byte("abcdefghijklmnopqrstuvwxyz0123456789-"), 1),
	}, "", "", true, false, false)
	if _, err := ParseRoot(kv, []byte("host=node01,rack=3")); err == nil {
		t.Fatal("Parse() succeeded, want failure (strict mode, unknown key 'rack')")
	}
}

func TestKeyValueOptionalKeyMayBeAbsent(t *testing.T) {
	kv := NewKeyValue("tags", FlavorGeneric, ',', map[string]Node{
		"host":              NewVariableByte("host", []byte("abcdefghijklmnopqrstuvwxyz0123456789-"), 1),
		"optional_key_rack": NewDecimalInteger("rack", SignNone, PadNone),
	}, "", "", false, false, false)
	if _, err := ParseRoot(kv, []byte("host=node01")); err != nil {
		t.Fatalf("Parse() error = %v, optional_key_rack should not be required", err)
	}
}

func TestKeyValueInfluxFlavorDecodesMeasurementTagsFields(t *testing.T) {
	kv := NewKeyValue("line", FlavorInflux, ',', nil, "", "", false, false, false)
	res, err := ParseRoot(kv, []byte("cpu_load,host=node01,cluster=a load=0.64 1600000000000000000"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if el := res.Tree.GetElement("line/measurement"); el == nil || el.Value.String() != "cpu_load" {
		t.Errorf("line/measurement = %v, want cpu_load", el)
	}
	if el := res.Tree.GetElement("line/host"); el == nil || el.Value.String() != "node01" {
		t.Errorf("line/host = %v, want node01", el)
	}
	if el := res.Tree.GetElement("line/load"); el == nil || el.Value.Float != 0.64 {
		t.Errorf("line/load = %v, want 0.64", el)
	}
}
