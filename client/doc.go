// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is a resilient control connection to an agent runner.
//
// A Client owns one transport socket and layers three guarantees over
// it: request/response correlation (concurrent requests each find
// their answer by request ID), bounded offline queueing (commands
// issued during an outage replay in order once the connection
// recovers), and automatic reconnection with exponential backoff.
// Server-pushed status updates and log records fan out to subscribers
// without blocking the receive path.
//
// The connection walks a small lifecycle: Disconnected, Connecting,
// Connected, Reconnecting, and the terminal Failed once the reconnect
// budget is spent. Entering Failed resolves everything still queued
// or pending with a *ConnectionFailedError.
//
// Every request is bounded by a timeout and resolves with exactly one
// of: the correlated response, a *TimeoutError, a *QueueFullError at
// submission, a *ConnectionFailedError, or ErrClosed. Transport-level
// trouble is absorbed into reconnection rather than surfaced from
// individual calls.
package client
