// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of client traffic counters.
type Stats struct {
	// MessagesSent counts frames written to the transport, including
	// queued commands replayed after a reconnect.
	MessagesSent int64
	// MessagesReceived counts frames read from the transport,
	// including events and responses that matched no waiter.
	MessagesReceived int64
	// BytesSent and BytesReceived count encoded payload bytes.
	BytesSent     int64
	BytesReceived int64
	// Errors counts transport and protocol failures: failed dials,
	// dropped connections, undecodable frames, unmatched responses.
	Errors int64
	// Reconnections counts successful recoveries, not attempts.
	Reconnections int64
	// ConnectedAt is when the current connection was established, zero
	// when not connected.
	ConnectedAt time.Time
}

// tracker accumulates counters touched from the request path, the
// read loop, and the reconnect loop.
type tracker struct {
	sent          atomic.Int64
	received      atomic.Int64
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
	errors        atomic.Int64
	reconnections atomic.Int64
	connectedAt   atomic.Int64 // unix nanoseconds, 0 when down
}

func (t *tracker) recordSend(n int) {
	t.sent.Add(1)
	t.bytesSent.Add(int64(n))
}

func (t *tracker) recordReceive(n int) {
	t.received.Add(1)
	t.bytesReceived.Add(int64(n))
}

func (t *tracker) recordError() {
	t.errors.Add(1)
}

func (t *tracker) recordConnected(at time.Time) {
	t.connectedAt.Store(at.UnixNano())
}

func (t *tracker) recordDisconnected() {
	t.connectedAt.Store(0)
}

func (t *tracker) recordReconnection() {
	t.reconnections.Add(1)
}

func (t *tracker) snapshot() Stats {
	s := Stats{
		MessagesSent:     t.sent.Load(),
		MessagesReceived: t.received.Load(),
		BytesSent:        t.bytesSent.Load(),
		BytesReceived:    t.bytesReceived.Load(),
		Errors:           t.errors.Load(),
		Reconnections:    t.reconnections.Load(),
	}
	if nanos := t.connectedAt.Load(); nanos != 0 {
		s.ConnectedAt = time.Unix(0, nanos)
	}
	return s
}
