// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by every operation after Close. Requests that
// were pending or queued when Close ran also resolve with it.
var ErrClosed = errors.New("client: closed")

// TimeoutError reports a request that received no response within its
// timeout. The pending entry is removed when this is raised, so the
// request ID no longer occupies a correlation slot.
type TimeoutError struct {
	// RequestID identifies the request that expired.
	RequestID string
	// Timeout is the deadline that was applied.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("client: request %s timed out after %v", e.RequestID, e.Timeout)
}

// QueueFullError reports a command rejected because the offline queue
// is at capacity. Distinguishable from other failures so callers can
// apply their own backpressure instead of retrying blindly.
type QueueFullError struct {
	// Capacity is the configured queue bound.
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("client: command queue full (capacity %d)", e.Capacity)
}

// ConnectionFailedError reports that the connection manager exhausted
// its reconnect attempts and entered the terminal failed state. Both
// new calls and commands still queued at that moment resolve with it.
type ConnectionFailedError struct {
	// Attempts is how many connection attempts were made.
	Attempts int
	// Err is the last dial error.
	Err error
}

func (e *ConnectionFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("client: connection failed after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("client: connection failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

// AgentError carries an application-level failure: the peer answered
// normally but refused the operation. Distinct from timeouts and from
// wire-level failures.
type AgentError struct {
	// Op is the operation that was refused, e.g. "spawn" or "pause".
	Op string
	// AgentID is the target agent, when the operation had one.
	AgentID uuid.UUID
	// Message is the peer's failure description.
	Message string
}

func (e *AgentError) Error() string {
	if e.AgentID == uuid.Nil {
		return fmt.Sprintf("client: %s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("client: %s failed for agent %s: %s", e.Op, e.AgentID, e.Message)
}

// IsTimeout reports whether err is a *TimeoutError anywhere in its
// chain.
func IsTimeout(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}

// IsQueueFull reports whether err is a *QueueFullError anywhere in its
// chain.
func IsQueueFull(err error) bool {
	var full *QueueFullError
	return errors.As(err, &full)
}

// IsConnectionFailed reports whether err is a *ConnectionFailedError
// anywhere in its chain.
func IsConnectionFailed(err error) bool {
	var failed *ConnectionFailedError
	return errors.As(err, &failed)
}

// IsAgentError reports whether err is an *AgentError anywhere in its
// chain.
func IsAgentError(err error) bool {
	var agentErr *AgentError
	return errors.As(err, &agentErr)
}
