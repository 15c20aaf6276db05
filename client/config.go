// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/bureau-foundation/drover/transport"
	"github.com/bureau-foundation/drover/wire"
)

// UnlimitedAttempts configures MaxReconnectAttempts to retry forever.
const UnlimitedAttempts = -1

// Defaults applied by DefaultConfig and by New for zero-valued fields.
const (
	DefaultRequestTimeout        = 30 * time.Second
	DefaultConnectTimeout        = 30 * time.Second
	DefaultMaxReconnectAttempts  = 3
	DefaultReconnectInitialDelay = 100 * time.Millisecond
	DefaultReconnectMaxDelay     = 30 * time.Second
	DefaultMaxQueueSize          = 1000
	DefaultHeartbeatInterval     = 30 * time.Second
)

// Config carries everything a Client needs. The zero value is not
// usable; start from DefaultConfig or fill in at least Endpoint.
type Config struct {
	// Endpoint is the peer address, e.g. "tcp://localhost:5555" or
	// "unix:///run/drover.sock". Required.
	Endpoint string

	// Pattern selects the socket discipline. transport.Async supports
	// concurrent in-flight requests and server-pushed events and is
	// the default; transport.Sync enforces strict send/receive
	// lockstep.
	Pattern transport.Pattern

	// RequestTimeout bounds every request that does not carry its own
	// timeout. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration

	// ConnectTimeout bounds each individual dial attempt. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// AutoReconnect enables automatic reconnection with exponential
	// backoff after a connection drop. When false the client enters
	// the failed state on the first drop.
	AutoReconnect bool

	// MaxReconnectAttempts is the number of connection attempts made
	// per outage before giving up, or UnlimitedAttempts to retry
	// forever. Zero means DefaultMaxReconnectAttempts. Ignored unless
	// AutoReconnect is set.
	MaxReconnectAttempts int

	// ReconnectInitialDelay is the wait after the first failed attempt.
	// The delay doubles after each subsequent failure up to
	// ReconnectMaxDelay. Zero means DefaultReconnectInitialDelay.
	ReconnectInitialDelay time.Duration

	// ReconnectMaxDelay caps the exponential backoff. Zero means
	// DefaultReconnectMaxDelay.
	ReconnectMaxDelay time.Duration

	// MaxQueueSize bounds the offline command queue. Commands issued
	// while the connection is down are buffered up to this many; the
	// next command is rejected immediately with a *QueueFullError.
	// Zero means DefaultMaxQueueSize.
	MaxQueueSize int

	// MaxMessageSize bounds encoded message size in both directions.
	// Zero means wire.DefaultMaxMessageSize.
	MaxMessageSize int

	// EnableHeartbeat runs a periodic health check against the peer
	// while connected. A heartbeat that fails or times out is treated
	// as a connection drop.
	EnableHeartbeat bool

	// HeartbeatInterval is the gap between heartbeats. Zero means
	// DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// ServerID optionally names the peer for log correlation.
	ServerID string

	// OnStateChange, when set, is invoked after every connection state
	// transition. Called from client goroutines; implementations must
	// not block and must not call back into the client.
	OnStateChange func(State)

	// Logger receives connection lifecycle and protocol diagnostics.
	// Nil means slog.Default().
	Logger *slog.Logger

	// Clock drives timeouts, backoff, and heartbeats. Nil means the
	// wall clock. Tests substitute a fake.
	Clock clock.Clock
}

// DefaultConfig returns a Config for endpoint with the standard
// timeouts, reconnect policy, and queue bound filled in.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:              endpoint,
		Pattern:               transport.Async,
		RequestTimeout:        DefaultRequestTimeout,
		ConnectTimeout:        DefaultConnectTimeout,
		AutoReconnect:         true,
		MaxReconnectAttempts:  DefaultMaxReconnectAttempts,
		ReconnectInitialDelay: DefaultReconnectInitialDelay,
		ReconnectMaxDelay:     DefaultReconnectMaxDelay,
		MaxQueueSize:          DefaultMaxQueueSize,
		MaxMessageSize:        wire.DefaultMaxMessageSize,
		EnableHeartbeat:       true,
		HeartbeatInterval:     DefaultHeartbeatInterval,
	}
}

// withDefaults validates cfg and fills zero-valued fields.
func (cfg Config) withDefaults() (Config, error) {
	if cfg.Endpoint == "" {
		return cfg, fmt.Errorf("client: config missing endpoint")
	}
	if cfg.MaxReconnectAttempts < UnlimitedAttempts {
		return cfg, fmt.Errorf("client: invalid max reconnect attempts %d", cfg.MaxReconnectAttempts)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.ReconnectInitialDelay == 0 {
		cfg.ReconnectInitialDelay = DefaultReconnectInitialDelay
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if cfg.MaxQueueSize == 0 {
		cfg.MaxQueueSize = DefaultMaxQueueSize
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	return cfg, nil
}
