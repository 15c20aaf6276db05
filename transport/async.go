// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Socket = (*asyncSocket)(nil)

// asyncSocket multiplexes many in-flight requests over one connection.
// Sends from concurrent goroutines are serialized by the write lock so
// frames never interleave; receives hand back whatever frame the peer
// produced next. Matching replies to requests is the caller's job.
type asyncSocket struct {
	network string
	address string
	opts    Options

	mu   sync.Mutex // guards conn
	conn net.Conn

	writeMu sync.Mutex
	readMu  sync.Mutex
}

func (s *asyncSocket) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return ErrAlreadyConnected
	}
	conn, err := dial(ctx, s.network, s.address, s.opts)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *asyncSocket) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("transport: disconnect: %w", err)
	}
	return nil
}

// current returns the live connection or ErrNotConnected.
func (s *asyncSocket) current() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

func (s *asyncSocket) Send(data []byte) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.SendTimeout)); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	if err := writeFrame(conn, data, s.opts.MaxFrameSize); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

func (s *asyncSocket) Receive(timeout time.Duration) ([]byte, error) {
	conn, err := s.current()
	if err != nil {
		return nil, err
	}
	s.readMu.Lock()
	defer s.readMu.Unlock()
	if err := receiveDeadline(conn, timeout); err != nil {
		return nil, fmt.Errorf("transport: receive: %w", err)
	}
	payload, err := readFrame(conn, s.opts.MaxFrameSize)
	if err != nil {
		return nil, mapReadError(err)
	}
	return payload, nil
}
