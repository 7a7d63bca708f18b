// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// StreamSink writes one JSON-lines record per Event to w, flushing after
// every write so a tailing reader (or a crash right after) never loses a
// buffered-but-unflushed line.
type StreamSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewStreamSink wraps w for JSON-lines Event output.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: bufio.NewWriter(w)}
}

type streamRecord struct {
	Source            string            `json:"Source"`
	Message           string            `json:"Message"`
	SortedLogLines    []string          `json:"LogData,omitempty"`
	AnalysisComponent AnalysisComponent `json:"AnalysisComponent"`
}

func (s *StreamSink) ReceiveEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := streamRecord{
		Source:            e.Source,
		Message:           e.Message,
		SortedLogLines:    e.SortedLogLines,
		AnalysisComponent: e.AnalysisComponent,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("event: marshaling record for %s: %w", e.Source, err)
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("event: writing record for %s: %w", e.Source, err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}
