// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

// State is the connection lifecycle state. Transitions are driven by
// the connection manager; callers observe them through Client.State
// and Config.OnStateChange.
type State int

const (
	// Disconnected is the initial state, and the state after an
	// explicit Disconnect.
	Disconnected State = iota
	// Connecting covers the first dial attempt of an explicit Connect.
	Connecting
	// Connected means the transport is established and requests flow
	// directly.
	Connected
	// Reconnecting means the connection dropped (or an attempt failed)
	// and the manager is retrying with backoff. Commands issued in
	// this state are queued.
	Reconnecting
	// Failed is terminal: reconnect attempts were exhausted. Every
	// subsequent call fails with *ConnectionFailedError.
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// canTransition reports whether moving from s to next is a legal step
// in the lifecycle.
func (s State) canTransition(next State) bool {
	switch s {
	case Disconnected:
		return next == Connecting
	case Connecting:
		return next == Connected || next == Reconnecting || next == Failed || next == Disconnected
	case Connected:
		return next == Reconnecting || next == Disconnected
	case Reconnecting:
		return next == Connected || next == Failed || next == Disconnected
	case Failed:
		return false
	default:
		return false
	}
}
