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
var _ Socket = (*syncSocket)(nil)

// syncSocket is the lockstep request/reply pattern: one frame out, one
// frame back, strictly alternating. The awaiting flag tracks which
// half of the exchange is legal next; a caller that violates the
// sequence gets a state error instead of interleaved frames.
type syncSocket struct {
	network string
	address string
	opts    Options

	mu       sync.Mutex
	conn     net.Conn
	awaiting bool
}

func (s *syncSocket) Connect(ctx context.Context) error {
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
	s.awaiting = false
	return nil
}

func (s *syncSocket) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.awaiting = false
	if err != nil {
		return fmt.Errorf("transport: disconnect: %w", err)
	}
	return nil
}

func (s *syncSocket) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if s.awaiting {
		return ErrAwaitingReply
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.SendTimeout)); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	if err := writeFrame(s.conn, data, s.opts.MaxFrameSize); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	s.awaiting = true
	return nil
}

func (s *syncSocket) Receive(timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	if !s.awaiting {
		s.mu.Unlock()
		return nil, ErrNoPendingRequest
	}
	conn := s.conn
	s.mu.Unlock()

	// The read happens outside the lock so Disconnect can interrupt a
	// blocked Receive by closing the connection.
	if err := receiveDeadline(conn, timeout); err != nil {
		return nil, fmt.Errorf("transport: receive: %w", err)
	}
	payload, err := readFrame(conn, s.opts.MaxFrameSize)
	if err != nil {
		// On timeout the reply is still owed; the exchange stays in
		// the awaiting state until it arrives or the socket is torn
		// down.
		return nil, mapReadError(err)
	}

	s.mu.Lock()
	s.awaiting = false
	s.mu.Unlock()
	return payload, nil
}
