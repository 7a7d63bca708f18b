// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/clusterwatch/sentryd/internal/atom"
)

func TestFileSourceReadsWholeFileThenEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := OpenFile(atom.SourceID("access"), path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer s.Close()

	if s.ID() != "access" {
		t.Fatalf("ID() = %q, want %q", s.ID(), "access")
	}

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "line one\nline two\n" {
		t.Fatalf("got %q", got)
	}
}

func TestOpenFileMissingReturnsError(t *testing.T) {
	if _, err := OpenFile(atom.SourceID("missing"), filepath.Join(t.TempDir(), "nope.log")); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}

func TestReaderSourceWrapsArbitraryReader(t *testing.T) {
	buf := bytes.NewBufferString("hello\n")
	s := NewReaderSource(atom.SourceID("stdin"), buf)
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("got %q", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on a non-Closer reader should be a no-op: %v", err)
	}
}

func TestDialNATSRequiresAddressAndSubject(t *testing.T) {
	if _, err := DialNATS(atom.SourceID("nats"), NATSConfig{}); err == nil {
		t.Fatal("expected an error with no address or subject configured")
	}
	if _, err := DialNATS(atom.SourceID("nats"), NATSConfig{Address: "nats://127.0.0.1:4222"}); err == nil {
		t.Fatal("expected an error with no subject configured")
	}
}
