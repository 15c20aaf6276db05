// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Pattern selects a socket's wire pattern at construction time.
type Pattern int

const (
	// Sync is lockstep request/reply: every send must be followed by
	// a receive before the next send.
	Sync Pattern = iota

	// Async multiplexes many in-flight requests over one connection;
	// replies arrive in arbitrary order.
	Async
)

// String returns the pattern name used in configuration and logs.
func (p Pattern) String() string {
	switch p {
	case Sync:
		return "sync"
	case Async:
		return "async"
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// ParsePattern maps a configuration string to a Pattern.
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "sync":
		return Sync, nil
	case "async":
		return Async, nil
	}
	return 0, fmt.Errorf("transport: unknown socket pattern %q", s)
}

// Socket state errors.
var (
	// ErrNotConnected is returned by Send, Receive, and Disconnect on
	// a socket with no live connection.
	ErrNotConnected = errors.New("transport: socket not connected")

	// ErrAlreadyConnected is returned by Connect on a socket that
	// already holds a live connection.
	ErrAlreadyConnected = errors.New("transport: socket already connected")

	// ErrReceiveTimeout is returned by Receive when no frame arrives
	// within the given timeout.
	ErrReceiveTimeout = errors.New("transport: receive timed out")

	// ErrAwaitingReply is returned by a Sync socket's Send when the
	// previous request's reply has not been received yet.
	ErrAwaitingReply = errors.New("transport: synchronous socket awaiting reply")

	// ErrNoPendingRequest is returned by a Sync socket's Receive when
	// no request is awaiting a reply.
	ErrNoPendingRequest = errors.New("transport: no request awaiting reply")
)

// Options tunes socket behavior. The zero value selects defaults.
type Options struct {
	// MaxFrameSize bounds inbound and outbound frame payloads. Zero
	// selects DefaultMaxFrameSize.
	MaxFrameSize int

	// ConnectTimeout bounds connection establishment in addition to
	// any deadline on the Connect context. Zero selects
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// SendTimeout bounds a single Send. Zero selects
	// DefaultSendTimeout.
	SendTimeout time.Duration

	// Logger receives connection-level events. Nil selects
	// slog.Default().
	Logger *slog.Logger
}

// Socket option defaults.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultSendTimeout    = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = DefaultMaxFrameSize
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Socket is a single logical connection to the peer. Implementations
// are safe for concurrent use, but the pattern chosen at construction
// governs which call sequences are legal.
type Socket interface {
	// Connect establishes the connection. The context bounds the dial
	// together with Options.ConnectTimeout.
	Connect(ctx context.Context) error

	// Disconnect closes the connection. Blocked Receive calls return
	// with an error. Disconnecting a socket that is not connected is
	// a no-op.
	Disconnect() error

	// Send writes one frame.
	Send(data []byte) error

	// Receive reads one frame. A positive timeout bounds the wait and
	// expiry returns ErrReceiveTimeout; zero blocks until a frame
	// arrives, the connection fails, or Disconnect is called.
	Receive(timeout time.Duration) ([]byte, error)
}

// New constructs a socket for the given pattern and endpoint. The
// endpoint is validated here; the connection is established by
// Connect.
func New(pattern Pattern, endpoint string, opts Options) (Socket, error) {
	network, address, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	switch pattern {
	case Sync:
		return &syncSocket{network: network, address: address, opts: opts}, nil
	case Async:
		return &asyncSocket{network: network, address: address, opts: opts}, nil
	}
	return nil, fmt.Errorf("transport: unknown socket pattern %d", int(pattern))
}

// parseEndpoint splits a scheme-qualified endpoint into the network
// and address arguments net.Dial expects. "ipc" is accepted as an
// alias for "unix" to match the endpoint notation of message-queue
// stacks.
func parseEndpoint(endpoint string) (network, address string, err error) {
	scheme, rest, found := strings.Cut(endpoint, "://")
	if !found {
		return "", "", fmt.Errorf("transport: endpoint %q has no scheme", endpoint)
	}
	if rest == "" {
		return "", "", fmt.Errorf("transport: endpoint %q has no address", endpoint)
	}
	switch scheme {
	case "tcp":
		return "tcp", rest, nil
	case "unix", "ipc":
		return "unix", rest, nil
	}
	return "", "", fmt.Errorf("transport: endpoint %q has unsupported scheme %q", endpoint, scheme)
}

// dial establishes the underlying connection shared by both socket
// patterns.
func dial(ctx context.Context, network, address string, opts Options) (net.Conn, error) {
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("transport: connect %s://%s: %w", network, address, err)
	}
	opts.Logger.Debug("transport connected",
		"network", network,
		"address", address)
	return conn, nil
}

// receiveDeadline converts a Receive timeout into an absolute read
// deadline; a zero timeout clears the deadline so the read blocks.
func receiveDeadline(conn net.Conn, timeout time.Duration) error {
	if timeout > 0 {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	}
	return conn.SetReadDeadline(time.Time{})
}

// mapReadError normalizes a failed frame read: deadline expiry becomes
// ErrReceiveTimeout, everything else is reported as a connection-level
// failure.
func mapReadError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrReceiveTimeout
	}
	return fmt.Errorf("transport: receive: %w", err)
}
