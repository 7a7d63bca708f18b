// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package avrocodec

import (
	"testing"

	"github.com/clusterwatch/sentryd/internal/persistence"
)

type histogramDoc struct {
	Name    string             `json:"name"`
	Total   float64            `json:"total"`
	Learned bool                `json:"learned"`
	Buckets map[string]float64 `json:"buckets"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := histogramDoc{
		Name:    "request_duration",
		Total:   42,
		Learned: true,
		Buckets: map[string]float64{"0-10": 3, "10-20": 7},
	}

	c := New()
	blob, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out histogramDoc
	if err := c.Unmarshal(blob, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if out.Name != in.Name || out.Total != in.Total || out.Learned != in.Learned {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
	if len(out.Buckets) != len(in.Buckets) || out.Buckets["0-10"] != 3 || out.Buckets["10-20"] != 7 {
		t.Fatalf("nested bucket map did not survive the round trip: %+v", out.Buckets)
	}
}

func TestUnmarshalOnFreshCodecAfterRestart(t *testing.T) {
	in := histogramDoc{Name: "restart_case", Total: 1}

	writer := New()
	blob, err := writer.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	reader := New() // simulates a new process with no prior schema history
	var out histogramDoc
	if err := reader.Unmarshal(blob, &out); err != nil {
		t.Fatalf("Unmarshal on a fresh Codec: %v", err)
	}
	if out.Name != "restart_case" {
		t.Fatalf("got name %q, want %q", out.Name, "restart_case")
	}
}

type memStore struct {
	docs map[string][]byte
}

func (m *memStore) LoadJSON(key string) ([]byte, bool, error) {
	doc, ok := m.docs[key]
	return doc, ok, nil
}

func (m *memStore) StoreJSON(key string, doc []byte) error {
	if m.docs == nil {
		m.docs = make(map[string][]byte)
	}
	m.docs[key] = doc
	return nil
}

func TestSaveDocLoadDocThroughStore(t *testing.T) {
	var s persistence.Store = &memStore{}
	c := New()

	in := histogramDoc{Name: "via_store", Total: 99}
	if err := SaveDoc(s, c, "Histogram/Default", in); err != nil {
		t.Fatalf("SaveDoc: %v", err)
	}

	var out histogramDoc
	ok, err := LoadDoc(s, c, "Histogram/Default", &out)
	if err != nil {
		t.Fatalf("LoadDoc: %v", err)
	}
	if !ok {
		t.Fatal("LoadDoc: expected ok=true for a previously saved key")
	}
	if out.Name != "via_store" || out.Total != 99 {
		t.Fatalf("got %+v, want Name=via_store Total=99", out)
	}

	var missing histogramDoc
	ok, err = LoadDoc(s, c, "Histogram/NoSuchKey", &missing)
	if err != nil {
		t.Fatalf("LoadDoc on missing key: %v", err)
	}
	if ok {
		t.Fatal("LoadDoc: expected ok=false for a key that was never stored")
	}
}
