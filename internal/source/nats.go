// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package source

import (
	"fmt"
	"io"

	"github.com/nats-io/nats.go"

	"github.com/clusterwatch/sentryd/internal/atom"
	"github.com/clusterwatch/sentryd/internal/logging"
)

// NATSConfig names a NATS server and subject to subscribe to, the
// authentication shape carried over from the teacher's pkg/nats client
// (address, optional username/password, optional credentials file).
type NATSConfig struct {
	Address       string
	Subject       string
	Queue         string // optional; empty means a plain (non-load-balanced) subscription
	Username      string
	Password      string
	CredsFilePath string
}

// NATSSource subscribes to a NATS subject and presents the payload of
// every received message, newline-terminated, as one contiguous byte
// stream — each message becomes exactly one line the Atomizer frames. The
// reconnect/disconnect/error handling mirrors the teacher's pkg/nats
// Client; this type narrows that client down to the one thing the Log
// Atom pipeline needs, a readable stream, instead of a general pub/sub
// facade.
type NATSSource struct {
	id   atom.SourceID
	conn *nats.Conn
	sub  *nats.Subscription
	pr   *io.PipeReader
	pw   *io.PipeWriter
}

// DialNATS connects to cfg.Address and subscribes to cfg.Subject,
// returning a Source identified by id. If cfg.Queue is non-empty the
// subscription joins that queue group for load-balanced delivery across
// multiple engine instances reading the same subject.
func DialNATS(id atom.SourceID, cfg NATSConfig) (*NATSSource, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("source: nats: address is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("source: nats: subject is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warnf("source: nats %s: disconnected: %s", id, err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Infof("source: nats %s: reconnected to %s", id, nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logging.Errorf("source: nats %s: %s", id, err)
		}),
	)

	conn, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("source: nats: connecting to %s: %w", cfg.Address, err)
	}

	pr, pw := io.Pipe()
	s := &NATSSource{id: id, conn: conn, pr: pr, pw: pw}

	handler := func(msg *nats.Msg) {
		line := append(append([]byte(nil), msg.Data...), '\n')
		if _, err := s.pw.Write(line); err != nil {
			logging.Warnf("source: nats %s: dropping message, reader closed: %s", id, err)
		}
	}

	var sub *nats.Subscription
	if cfg.Queue != "" {
		sub, err = conn.QueueSubscribe(cfg.Subject, cfg.Queue, handler)
	} else {
		sub, err = conn.Subscribe(cfg.Subject, handler)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("source: nats: subscribing to %s: %w", cfg.Subject, err)
	}
	s.sub = sub

	logging.Infof("source: nats %s: subscribed to %s at %s", id, cfg.Subject, cfg.Address)
	return s, nil
}

func (s *NATSSource) Read(p []byte) (int, error) { return s.pr.Read(p) }
func (s *NATSSource) ID() atom.SourceID          { return s.id }

// Close unsubscribes, closes the connection, and unblocks any pending Read
// with io.EOF.
func (s *NATSSource) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			logging.Warnf("source: nats %s: unsubscribe failed: %s", s.id, err)
		}
	}
	s.conn.Close()
	return s.pw.Close()
}
